package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultURL is the Polymarket real-time data socket.
const DefaultURL = "wss://ws-live-data.polymarket.com"

const (
	topicActivity = "activity"
	typeTrades    = "trades"
)

// Message is the envelope every socket frame arrives in.
type Message struct {
	Topic        string          `json:"topic"`
	Type         string          `json:"type"`
	Timestamp    int64           `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
	ConnectionID string          `json:"connection_id,omitempty"`
}

// SubscriptionAction selects subscribe or unsubscribe.
type SubscriptionAction string

const (
	ActionSubscribe   SubscriptionAction = "subscribe"
	ActionUnsubscribe SubscriptionAction = "unsubscribe"
)

// Subscription names one topic/type pair to stream.
type Subscription struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Filters string `json:"filters,omitempty"`
}

// SubscriptionRequest is the control frame sent after connecting.
type SubscriptionRequest struct {
	Action        SubscriptionAction `json:"action"`
	Subscriptions []Subscription     `json:"subscriptions"`
}

// Number tolerates the feed's habit of sending numbers as either JSON
// numbers or quoted strings. Null and empty string decode to zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	// Unmarshaling null into json.Number is a silent no-op, so catch it
	// before the numeric path sees an empty literal.
	if string(b) == "null" {
		*n = 0
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		f, err := num.Float64()
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into Number", string(b))
}

func (n Number) Float64() float64 { return float64(n) }

// activityTrade is one record on the activity topic's trades stream. The
// same shape also carries splits, merges and redeems; Type tells them
// apart.
type activityTrade struct {
	Asset           string `json:"asset"`
	ConditionID     string `json:"conditionId"`
	EventSlug       string `json:"eventSlug"`
	Name            string `json:"name"`
	Outcome         string `json:"outcome"`
	OutcomeIndex    int    `json:"outcomeIndex"`
	Price           Number `json:"price"`
	ProxyWallet     string `json:"proxyWallet"`
	Pseudonym       string `json:"pseudonym"`
	Side            string `json:"side"`
	Size            Number `json:"size"`
	Slug            string `json:"slug"`
	Timestamp       int64  `json:"timestamp"`
	Title           string `json:"title"`
	TransactionHash string `json:"transactionHash"`
	Type            string `json:"type"`
	UsdcSize        Number `json:"usdcSize"`
}
