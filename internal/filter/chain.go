package filter

import (
	"context"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// Reason codes surfaced to the stats monitor when a stage discards a trade.
const (
	ReasonDuplicate      = "duplicate"
	ReasonExcludedMarket = "excluded_market"
	ReasonBelowMinSize   = "below_min_size"
	ReasonLPBalanced     = "lp_balanced"
)

// Stage is one predicate in the chain. Check returns keep=false with a
// reason code to discard the trade; reason is empty when the trade passes.
type Stage interface {
	Name() string
	Check(ctx context.Context, trade *domain.Trade) (keep bool, reason string)
}

// Chain runs its stages in order and short-circuits on the first discard.
// Order is fixed by cost: the no-lookup stages run first so the bulk of the
// feed is dropped before anything that might touch a cache or upstream.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain over the given stages, evaluated in order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Apply runs the trade through the chain. On discard it reports the stage
// name and reason code of the stage that rejected it.
func (c *Chain) Apply(ctx context.Context, trade *domain.Trade) (keep bool, stage, reason string) {
	for _, s := range c.stages {
		ok, why := s.Check(ctx, trade)
		if !ok {
			return false, s.Name(), why
		}
	}
	return true, "", ""
}
