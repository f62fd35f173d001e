package filter

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/pkg/cache"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// MarketSource answers market exclusion checks from cache only. A miss is
// not an error: exclusion never blocks the pipeline on a network call.
type MarketSource interface {
	CachedMarket(conditionID string) (*domain.MarketInfo, bool)
}

// PositionSource looks up a wallet's open positions (through the cache).
type PositionSource interface {
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)
}

// NewDefaultChain assembles the standard chain: dedup, market exclusion,
// minimum size, LP balance. A below-minimum trade is dropped before the LP
// stage and therefore triggers no position lookup at all.
func NewDefaultChain(seen *cache.SeenCache, markets MarketSource, positions PositionSource, minTrade decimal.Decimal, lpRatio float64) *Chain {
	return NewChain(
		NewDedupStage(seen),
		NewMarketStage(markets),
		NewSizeStage(minTrade),
		NewLPStage(positions, lpRatio),
	)
}

// DedupStage drops trades whose ID was already observed inside the
// retention window. MarkIfNew both checks and records, so two copies of the
// same trade can never both pass even when processed back to back.
type DedupStage struct {
	seen *cache.SeenCache
}

func NewDedupStage(seen *cache.SeenCache) *DedupStage {
	return &DedupStage{seen: seen}
}

func (s *DedupStage) Name() string { return "dedup" }

func (s *DedupStage) Check(_ context.Context, trade *domain.Trade) (bool, string) {
	if !s.seen.MarkIfNew(trade.ID) {
		return false, ReasonDuplicate
	}
	return true, ""
}

// MarketStage drops trades on markets tagged as excluded. It consults the
// market cache only; an unknown market passes so that a cold cache never
// suppresses alerts.
type MarketStage struct {
	markets MarketSource
}

func NewMarketStage(markets MarketSource) *MarketStage {
	return &MarketStage{markets: markets}
}

func (s *MarketStage) Name() string { return "market" }

func (s *MarketStage) Check(_ context.Context, trade *domain.Trade) (bool, string) {
	info, ok := s.markets.CachedMarket(trade.Market)
	if !ok {
		return true, ""
	}
	if info.Excluded {
		return false, ReasonExcludedMarket
	}
	return true, ""
}

// SizeStage drops trades whose notional is below the configured minimum.
type SizeStage struct {
	min decimal.Decimal
}

func NewSizeStage(min decimal.Decimal) *SizeStage {
	return &SizeStage{min: min}
}

func (s *SizeStage) Name() string { return "size" }

func (s *SizeStage) Check(_ context.Context, trade *domain.Trade) (bool, string) {
	if trade.Notional.LessThan(s.min) {
		return false, ReasonBelowMinSize
	}
	return true, ""
}

// LPStage drops trades from wallets holding both sides of the traded market
// in near-equal measure: that shape is liquidity provision, not a view. A
// failed position lookup passes the trade through.
type LPStage struct {
	positions PositionSource
	ratio     float64
}

func NewLPStage(positions PositionSource, ratio float64) *LPStage {
	return &LPStage{positions: positions, ratio: ratio}
}

func (s *LPStage) Name() string { return "lp" }

func (s *LPStage) Check(ctx context.Context, trade *domain.Trade) (bool, string) {
	positions, err := s.positions.Positions(ctx, trade.Wallet)
	if err != nil {
		logger.Debugf("lp filter: position lookup failed for %s, passing trade through: %v", domain.ShortWallet(trade.Wallet), err)
		return true, ""
	}
	if balancedExposure(positions, trade.Market, s.ratio) {
		return false, ReasonLPBalanced
	}
	return true, ""
}

// balancedExposure reports whether the wallet holds both outcomes of the
// given market with a smaller/larger share ratio at or above the threshold.
func balancedExposure(positions []domain.Position, conditionID string, ratio float64) bool {
	var bySide [2]float64
	for _, p := range positions {
		if p.ConditionID != conditionID || p.Size <= 0 {
			continue
		}
		if p.OutcomeIndex < 0 || p.OutcomeIndex >= len(bySide) {
			continue
		}
		bySide[p.OutcomeIndex] += p.Size
	}
	small, large := bySide[0], bySide[1]
	if small > large {
		small, large = large, small
	}
	if small <= 0 {
		return false
	}
	return small/large >= ratio
}
