package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the taker side of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one fill from the live activity feed. Immutable once parsed.
type Trade struct {
	ID        string          // transaction hash, globally unique per feed
	Market    string          // condition id
	Asset     string          // outcome token id
	Outcome   string          // outcome label ("Yes", "No", ...)
	Side      Side            // taker side
	Price     float64         // implied probability in (0, 1)
	Size      float64         // shares
	Notional  decimal.Decimal // USD value, price * size
	Wallet    string          // proxy wallet of the taker
	Title     string          // market question, for alert text
	Timestamp time.Time       // event time
}

// Valid reports whether the trade carries the fields the pipeline depends on.
func (t *Trade) Valid() bool {
	return t.ID != "" && t.Market != "" && t.Wallet != "" &&
		t.Price > 0 && t.Price < 1 && t.Notional.IsPositive()
}

// IsBuy reports whether the taker bought the outcome token.
func (t *Trade) IsBuy() bool {
	return t.Side == SideBuy
}

// ImpliedPct returns the price as a whole-number percentage (0.35 -> 35).
func (t *Trade) ImpliedPct() int {
	return int(t.Price*100 + 0.5)
}
