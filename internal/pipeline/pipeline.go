// Package pipeline runs the per-trade processing loop: filter, enrich,
// score, and hand eligible trades to the alert dispatcher. One consumer
// goroutine preserves feed order end to end.
package pipeline

import (
	"context"
	"time"

	"github.com/vikram1211/polymarket-whale-bot/internal/alert"
	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/filter"
	"github.com/vikram1211/polymarket-whale-bot/internal/score"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// Enricher supplies cached context for a trade. All lookups are best
// effort: the pipeline scores with whatever succeeded.
type Enricher interface {
	Profile(ctx context.Context, wallet string) (*domain.WalletProfile, error)
	Market(ctx context.Context, conditionID string) (*domain.MarketInfo, error)
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)
}

// AlertSink receives alerts for delivery.
type AlertSink interface {
	Enqueue(a *alert.Alert) bool
}

// Pipeline consumes parsed trades until the feed channel closes.
type Pipeline struct {
	trades   <-chan *domain.Trade
	filters  *filter.Chain
	enricher Enricher
	engine   *score.Engine
	sink     AlertSink
	monitor  *stats.Monitor
	minScore int
	done     chan struct{}
}

func New(trades <-chan *domain.Trade, filters *filter.Chain, enricher Enricher, engine *score.Engine, sink AlertSink, monitor *stats.Monitor, minScore int) *Pipeline {
	return &Pipeline{
		trades:   trades,
		filters:  filters,
		enricher: enricher,
		engine:   engine,
		sink:     sink,
		monitor:  monitor,
		minScore: minScore,
		done:     make(chan struct{}),
	}
}

// Run processes trades until the feed channel closes, which drains any
// backlog, or until ctx is cancelled for a hard stop.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-p.trades:
			if !ok {
				return
			}
			p.process(ctx, trade)
		}
	}
}

// Done is closed when the consumer has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// process runs one trade through the full chain. A panic is contained to
// the trade that caused it.
func (p *Pipeline) process(ctx context.Context, trade *domain.Trade) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("pipeline: panic processing trade %s: %v", trade.ID, r)
		}
	}()

	keep, stage, reason := p.filters.Apply(ctx, trade)
	if !keep {
		p.monitor.Filtered(reason)
		logger.Debugf("pipeline: trade %s discarded by %s filter (%s)", trade.ID, stage, reason)
		return
	}

	in := score.Input{Trade: trade, Now: time.Now().UTC()}

	profile, err := p.enricher.Profile(ctx, trade.Wallet)
	if err != nil {
		p.monitor.LookupError()
		logger.Debugf("pipeline: profile lookup failed for %s: %v", domain.ShortWallet(trade.Wallet), err)
	} else {
		in.Profile = profile
	}

	market, err := p.enricher.Market(ctx, trade.Market)
	if err != nil {
		p.monitor.LookupError()
		logger.Debugf("pipeline: market lookup failed for %s: %v", trade.Market, err)
	} else {
		in.Market = market
	}

	// The exclusion filter answers from cache only and passes unknown
	// markets; now that the market is actually known, re-check it.
	if in.Market != nil && in.Market.Excluded {
		p.monitor.Filtered(filter.ReasonExcludedMarket)
		logger.Debugf("pipeline: trade %s on excluded market %s", trade.ID, trade.Market)
		return
	}

	positions, err := p.enricher.Positions(ctx, trade.Wallet)
	if err != nil {
		p.monitor.LookupError()
		logger.Debugf("pipeline: positions lookup failed for %s: %v", domain.ShortWallet(trade.Wallet), err)
	} else {
		in.Positions = positions
	}

	if in.Profile != nil || in.Market != nil {
		p.monitor.Enriched()
	}

	result := p.engine.Score(in)
	p.monitor.Scored()
	if result.Total < p.minScore {
		logger.Debugf("pipeline: trade %s scored %d, below %d", trade.ID, result.Total, p.minScore)
		return
	}

	p.monitor.AlertEligible()
	p.sink.Enqueue(alert.New(trade, in.Profile, in.Market, result))
}
