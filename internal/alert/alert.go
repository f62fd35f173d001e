// Package alert turns scored trades into Telegram messages and delivers
// them with at-most-once semantics, a minimum send interval and bounded
// retries.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/score"
)

// Alert is one deliverable notification. Profile and Market carry whatever
// enrichment succeeded and may be nil.
type Alert struct {
	ID        string
	Trade     *domain.Trade
	Profile   *domain.WalletProfile
	Market    *domain.MarketInfo
	Score     score.Score
	CreatedAt time.Time
}

// New builds an alert for a scored trade.
func New(trade *domain.Trade, profile *domain.WalletProfile, market *domain.MarketInfo, sc score.Score) *Alert {
	return &Alert{
		ID:        uuid.NewString(),
		Trade:     trade,
		Profile:   profile,
		Market:    market,
		Score:     sc,
		CreatedAt: time.Now().UTC(),
	}
}

// DedupKey identifies the underlying trade, not the alert instance, so a
// trade that reaches the dispatcher twice still produces one message.
func (a *Alert) DedupKey() string {
	return "alert:" + a.Trade.ID
}

// Summary is the one-line form kept in the recent-alerts ring.
func (a *Alert) Summary() string {
	return fmt.Sprintf("%s %s %s %s @%d%% score %d",
		a.CreatedAt.Format("15:04:05"),
		formatUSD(a.Trade.Notional),
		a.Trade.Side,
		a.Trade.Outcome,
		a.Trade.ImpliedPct(),
		a.Score.Total,
	)
}
