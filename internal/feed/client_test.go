package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
)

// startFeedServer runs a websocket endpoint that calls handler for every
// accepted connection, passing the 1-based connection number.
func startFeedServer(t *testing.T, handler func(conn *websocket.Conn, connNum int)) (string, *int32) {
	t.Helper()
	var conns int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, int(atomic.AddInt32(&conns, 1)))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &conns
}

func feedConfig(url string) *config.Config {
	return &config.Config{
		FeedURL:              url,
		TradeQueueSize:       16,
		StaleAfter:           2 * time.Second,
		ReconnectMaxDelay:    50 * time.Millisecond,
		ReconnectMaxAttempts: 0,
	}
}

// consumeSubscribe reads the client's first frame, the subscription request.
func consumeSubscribe(conn *websocket.Conn) SubscriptionRequest {
	var req SubscriptionRequest
	_ = conn.ReadJSON(&req)
	return req
}

// holdOpen keeps the server side alive until the client closes the socket.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeTradeEnvelope(conn *websocket.Conn, txHash string) error {
	payload, _ := json.Marshal(map[string]any{
		"asset":           "token-1",
		"conditionId":     "0xcond",
		"outcome":         "Yes",
		"price":           0.35,
		"proxyWallet":     "0xwallet",
		"side":            "BUY",
		"size":            7142.86,
		"timestamp":       time.Now().UnixMilli(),
		"title":           "Will it happen?",
		"transactionHash": txHash,
		"type":            "TRADE",
		"usdcSize":        2500,
	})
	return conn.WriteJSON(Message{
		Topic:     "activity",
		Type:      "trades",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

func TestClientReceivesTrades(t *testing.T) {
	subCh := make(chan SubscriptionRequest, 1)
	url, _ := startFeedServer(t, func(conn *websocket.Conn, _ int) {
		subCh <- consumeSubscribe(conn)
		_ = writeTradeEnvelope(conn, "0xaa01")
		// Noise the client must skip without counting as malformed.
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
		_ = conn.WriteJSON(Message{Topic: "activity", Type: "subscribe"})
		_ = conn.WriteJSON(Message{Topic: "comments", Type: "comment_created", Payload: json.RawMessage(`{}`)})
		_ = writeTradeEnvelope(conn, "0xaa02")
		holdOpen(conn)
	})

	monitor := stats.NewMonitor()
	client := NewClient(feedConfig(url), monitor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	sub := <-subCh
	assert.Equal(t, ActionSubscribe, sub.Action)
	assert.Equal(t, []Subscription{{Topic: "activity", Type: "trades"}}, sub.Subscriptions)

	first := <-client.Trades()
	assert.Equal(t, "0xaa01", first.ID)
	assert.Equal(t, "0xcond", first.Market)
	assert.Equal(t, "2500", first.Notional.String())

	second := <-client.Trades()
	assert.Equal(t, "0xaa02", second.ID)

	s := monitor.Snapshot()
	assert.Equal(t, int64(2), s.Received)
	assert.Equal(t, int64(0), s.Malformed)

	cancel()
	require.NoError(t, <-done, "cancellation is a clean stop")
	assert.Equal(t, StateDisconnected, client.State())
}

func TestClientAnswersTextHeartbeat(t *testing.T) {
	reply := make(chan string, 4)
	url, _ := startFeedServer(t, func(conn *websocket.Conn, _ int) {
		consumeSubscribe(conn)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
		// The only data frame the client writes after subscribing is the
		// heartbeat answer; protocol-level pings never surface here.
		if mt, data, err := conn.ReadMessage(); err == nil && mt == websocket.TextMessage {
			reply <- string(data)
		}
		holdOpen(conn)
	})

	client := NewClient(feedConfig(url), stats.NewMonitor())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case got := <-reply:
		assert.Equal(t, "PONG", got)
	case <-time.After(5 * time.Second):
		t.Fatal("heartbeat went unanswered")
	}
}

func TestClientCountsMalformedTrades(t *testing.T) {
	url, _ := startFeedServer(t, func(conn *websocket.Conn, _ int) {
		consumeSubscribe(conn)
		// Well-formed envelope around a broken trade: unknown side.
		_ = conn.WriteJSON(Message{
			Topic:   "activity",
			Type:    "trades",
			Payload: json.RawMessage(`{"transactionHash":"0xee01","conditionId":"0xcond","proxyWallet":"0xwallet","side":"HOLD","price":0.5,"size":100,"type":"TRADE"}`),
		})
		// A split is skipped, not malformed.
		_ = conn.WriteJSON(Message{
			Topic:   "activity",
			Type:    "trades",
			Payload: json.RawMessage(`{"transactionHash":"0xee02","type":"SPLIT"}`),
		})
		_ = writeTradeEnvelope(conn, "0xee03")
		holdOpen(conn)
	})

	monitor := stats.NewMonitor()
	client := NewClient(feedConfig(url), monitor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	// Frames are handled in order, so the trailing trade arriving means the
	// broken one has already been counted.
	select {
	case trade := <-client.Trades():
		assert.Equal(t, "0xee03", trade.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("trailing trade never arrived")
	}

	s := monitor.Snapshot()
	assert.Equal(t, int64(1), s.Malformed)
	assert.Equal(t, int64(1), s.Received)
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	url, conns := startFeedServer(t, func(conn *websocket.Conn, connNum int) {
		consumeSubscribe(conn)
		if connNum == 1 {
			return // drop straight away
		}
		_ = writeTradeEnvelope(conn, "0xbb01")
		holdOpen(conn)
	})

	monitor := stats.NewMonitor()
	client := NewClient(feedConfig(url), monitor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case trade := <-client.Trades():
		assert.Equal(t, "0xbb01", trade.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no trade after reconnect")
	}

	assert.GreaterOrEqual(t, atomic.LoadInt32(conns), int32(2))
	assert.GreaterOrEqual(t, monitor.Snapshot().Reconnects, int64(1))
}

func TestClientStalenessForcesReconnect(t *testing.T) {
	url, conns := startFeedServer(t, func(conn *websocket.Conn, connNum int) {
		consumeSubscribe(conn)
		if connNum == 1 {
			holdOpen(conn) // silent connection, never writes
			return
		}
		_ = writeTradeEnvelope(conn, "0xcc01")
		holdOpen(conn)
	})

	cfg := feedConfig(url)
	cfg.StaleAfter = 150 * time.Millisecond
	client := NewClient(cfg, stats.NewMonitor())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case trade := <-client.Trades():
		assert.Equal(t, "0xcc01", trade.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("stale connection was never replaced")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(conns), int32(2))
}

func TestClientGivesUpAtFailureCeiling(t *testing.T) {
	// Plain HTTP server: every upgrade attempt fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cfg := feedConfig("ws" + strings.TrimPrefix(srv.URL, "http"))
	cfg.ReconnectMaxAttempts = 1
	client := NewClient(cfg, stats.NewMonitor())

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failures")

	_, open := <-client.Trades()
	assert.False(t, open, "trade channel closes on terminal failure")
}

func TestClientDropsWhenQueueFull(t *testing.T) {
	url, _ := startFeedServer(t, func(conn *websocket.Conn, _ int) {
		consumeSubscribe(conn)
		_ = writeTradeEnvelope(conn, "0xdd01")
		_ = writeTradeEnvelope(conn, "0xdd02")
		holdOpen(conn)
	})

	cfg := feedConfig(url)
	cfg.TradeQueueSize = 1
	monitor := stats.NewMonitor()
	client := NewClient(cfg, monitor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()
	// Nothing consumes the channel, so the second trade has nowhere to go.

	require.Eventually(t, func() bool {
		return monitor.Snapshot().Received == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), monitor.Snapshot().FeedDrops)
}

func TestBackoffDelayStaysWithinCap(t *testing.T) {
	cfg := feedConfig("ws://unused")
	cfg.ReconnectMaxDelay = 10 * time.Second
	client := NewClient(cfg, stats.NewMonitor())

	for attempt := 1; attempt <= 10; attempt++ {
		d := client.backoffDelay(attempt)
		assert.Greater(t, d, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, d, 11*time.Second, "attempt %d", attempt)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "stale", StateStale.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
}
