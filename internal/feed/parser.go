package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// errSkip marks activity records that are well formed but not trades
// (splits, merges, redeems). They are skipped without counting as
// malformed.
var errSkip = errors.New("not a trade event")

// msTimestampFloor separates second from millisecond epochs. Anything
// above it can only be milliseconds until the year 2286.
const msTimestampFloor = 1e10

// parseTrade converts one activity payload into a domain trade.
func parseTrade(payload json.RawMessage) (*domain.Trade, error) {
	var raw activityTrade
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, "decode activity payload")
	}
	if raw.Type != "" && !strings.EqualFold(raw.Type, "TRADE") {
		return nil, errSkip
	}

	side, err := parseSide(raw.Side)
	if err != nil {
		return nil, err
	}

	price := raw.Price.Float64()
	size := raw.Size.Float64()
	notional := raw.UsdcSize.Float64()
	if notional <= 0 {
		notional = price * size
	}

	trade := &domain.Trade{
		ID:        raw.TransactionHash,
		Market:    raw.ConditionID,
		Asset:     raw.Asset,
		Outcome:   raw.Outcome,
		Side:      side,
		Price:     price,
		Size:      size,
		Notional:  decimal.NewFromFloat(notional).Round(2),
		Wallet:    raw.ProxyWallet,
		Title:     raw.Title,
		Timestamp: parseEpoch(raw.Timestamp),
	}
	if !trade.Valid() {
		return nil, fmt.Errorf("incomplete trade: tx=%q market=%q wallet=%q price=%g",
			raw.TransactionHash, raw.ConditionID, raw.ProxyWallet, price)
	}
	return trade, nil
}

func parseSide(s string) (domain.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return domain.SideBuy, nil
	case "SELL":
		return domain.SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// parseEpoch accepts both second and millisecond timestamps; the feed has
// been seen sending either.
func parseEpoch(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	if ts > msTimestampFloor {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
