package lookup

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// Numeric tolerates the upstream habit of returning numbers either bare or
// quoted, and null for absent values.
type Numeric float64

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		*n = 0
		return nil
	}

	if data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Numeric(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Numeric(f)
	return nil
}

func (n Numeric) Float64() float64 {
	return float64(n)
}

// TradeSummary is the aggregate history view the size-anomaly signal needs.
type TradeSummary struct {
	TradeCount  int
	AvgTradeUSD float64
}

// gammaProfile is the /public-profile payload.
type gammaProfile struct {
	CreatedAt   string `json:"createdAt"`
	Name        string `json:"name"`
	Pseudonym   string `json:"pseudonym"`
	ProxyWallet string `json:"proxyWallet"`
}

// gammaTag mirrors the tag objects embedded in /markets responses.
type gammaTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// gammaMarket is the subset of the /markets payload the pipeline uses.
type gammaMarket struct {
	ID          string     `json:"id"`
	Question    string     `json:"question"`
	ConditionID string     `json:"conditionId"`
	Slug        string     `json:"slug"`
	Tags        []gammaTag `json:"tags"`
	EndDateISO  string     `json:"endDateIso"`
	EndDate     string     `json:"endDate"`
	Closed      *bool      `json:"closed"`
}

// dataPosition is one entry of the /positions payload.
type dataPosition struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         Numeric `json:"size"`
	AvgPrice     Numeric `json:"avgPrice"`
	CurPrice     Numeric `json:"curPrice"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	ProxyWallet  string  `json:"proxyWallet"`
}

// dataTrade is the subset of the /trades payload used for history summaries.
type dataTrade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	ConditionID     string  `json:"conditionId"`
	Size            Numeric `json:"size"`
	Price           Numeric `json:"price"`
	UsdcSize        Numeric `json:"usdcSize"`
	Timestamp       int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

func (p *gammaProfile) toDomain(wallet string) *domain.WalletProfile {
	return &domain.WalletProfile{
		Wallet:    wallet,
		CreatedAt: parseUpstreamTime(p.CreatedAt),
		Name:      p.Name,
		Pseudonym: p.Pseudonym,
	}
}

func (m *gammaMarket) toDomain() *domain.MarketInfo {
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		label := strings.ToLower(strings.TrimSpace(t.Label))
		if label == "" {
			label = strings.ToLower(strings.TrimSpace(t.Slug))
		}
		if label != "" {
			tags = append(tags, label)
		}
	}

	end := m.EndDateISO
	if end == "" {
		end = m.EndDate
	}

	return &domain.MarketInfo{
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		Tags:        tags,
		EndDate:     parseUpstreamTime(end),
	}
}

func (p *dataPosition) toDomain() domain.Position {
	return domain.Position{
		Asset:        p.Asset,
		ConditionID:  p.ConditionID,
		Outcome:      p.Outcome,
		OutcomeIndex: p.OutcomeIndex,
		Size:         p.Size.Float64(),
		AvgPrice:     p.AvgPrice.Float64(),
		CurPrice:     p.CurPrice.Float64(),
	}
}

// tradeUSD prefers the explicit usdcSize and falls back to size*price.
func (t *dataTrade) tradeUSD() float64 {
	if usd := t.UsdcSize.Float64(); usd > 0 {
		return usd
	}
	return t.Size.Float64() * t.Price.Float64()
}

// parseUpstreamTime accepts the formats gamma actually emits: RFC3339 with or
// without sub-seconds, and bare dates. Returns zero time when unparseable.
func parseUpstreamTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
