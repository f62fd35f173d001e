package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikram1211/polymarket-whale-bot/internal/alert"
	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/enrich"
	"github.com/vikram1211/polymarket-whale-bot/internal/filter"
	"github.com/vikram1211/polymarket-whale-bot/internal/lookup"
	"github.com/vikram1211/polymarket-whale-bot/internal/score"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/pkg/cache"
)

func pipelineConfig() *config.Config {
	return &config.Config{
		MinTradeUSD:           decimal.NewFromInt(2000),
		ExcludedTags:          []string{"sports"},
		LPBalanceRatio:        0.5,
		MinAlertScore:         40,
		FreshWalletMaxAgeDays: 60,
		SizeAnomalyMultiplier: 3,
		TimingLookbackHours:   24,
		LongshotProbThreshold: 0.40,
		ConcentrationMinPct:   50,
		ProfileCacheTTL:       time.Hour,
		PositionsCacheTTL:     5 * time.Minute,
		MarketsCacheTTL:       24 * time.Hour,
		DedupWindow:           10 * time.Minute,
	}
}

type capturingSink struct {
	mu     sync.Mutex
	alerts []*alert.Alert
}

func (s *capturingSink) Enqueue(a *alert.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return true
}

func (s *capturingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func (s *capturingSink) first() *alert.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts[0]
}

type harness struct {
	trades  chan *domain.Trade
	sink    *capturingSink
	gamma   *lookup.MockGammaAPI
	data    *lookup.MockDataAPI
	monitor *stats.Monitor
	pipe    *Pipeline
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	gamma := lookup.NewMockGammaAPI()
	data := lookup.NewMockDataAPI()
	provider := enrich.NewProvider(data, gamma, cfg)

	chain := filter.NewDefaultChain(
		cache.NewSeenCache(cfg.DedupWindow),
		provider,
		provider,
		cfg.MinTradeUSD,
		cfg.LPBalanceRatio,
	)
	engine, err := score.FromConfig(cfg)
	require.NoError(t, err)

	sink := &capturingSink{}
	monitor := stats.NewMonitor()
	trades := make(chan *domain.Trade, 16)
	return &harness{
		trades:  trades,
		sink:    sink,
		gamma:   gamma,
		data:    data,
		monitor: monitor,
		pipe:    New(trades, chain, provider, engine, sink, monitor, cfg.MinAlertScore),
	}
}

// run feeds the given trades through the pipeline and waits for it to
// finish.
func (h *harness) run(t *testing.T, trades ...*domain.Trade) {
	t.Helper()
	go h.pipe.Run(context.Background())
	for _, trade := range trades {
		h.trades <- trade
	}
	close(h.trades)
	select {
	case <-h.pipe.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not drain")
	}
}

func whaleTrade(id string) *domain.Trade {
	return &domain.Trade{
		ID:        id,
		Market:    "0xcond",
		Asset:     "token-1",
		Outcome:   "Yes",
		Side:      domain.SideBuy,
		Price:     0.35,
		Size:      7142.86,
		Notional:  decimal.NewFromInt(2500),
		Wallet:    "0xwhale",
		Title:     "Will it happen?",
		Timestamp: time.Now().UTC(),
	}
}

func seedWhaleContext(h *harness) {
	// Just under eight days old so the fresh-wallet signal lands on 26
	// points even after the clock advances between seeding and scoring.
	h.gamma.ProfileByWallet["0xwhale"] = &domain.WalletProfile{
		Wallet:    "0xwhale",
		CreatedAt: time.Now().UTC().Add(-8*24*time.Hour + 30*time.Minute),
		Pseudonym: "Prudent-Pelican",
	}
	h.data.SummaryByWallet["0xwhale"] = lookup.TradeSummary{TradeCount: 3, AvgTradeUSD: 40}
	h.gamma.MarketByID["0xcond"] = &domain.MarketInfo{
		ConditionID: "0xcond",
		Question:    "Will it happen?",
		Tags:        []string{"politics"},
		EndDate:     time.Now().UTC().Add(10 * time.Hour),
	}
}

func TestFreshWalletWhaleTriggersOneAlert(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)

	// The same fill arrives twice; dedup keeps the second copy out.
	h.run(t, whaleTrade("0xt1"), whaleTrade("0xt1"))

	require.Equal(t, 1, h.sink.count())
	a := h.sink.first()
	assert.Equal(t, "0xt1", a.Trade.ID)
	assert.Equal(t, 43, a.Score.Total)
	require.NotNil(t, a.Profile)
	assert.Equal(t, 3, a.Profile.TradeCount)
	require.NotNil(t, a.Market)

	s := h.monitor.Snapshot()
	assert.Equal(t, int64(1), s.Filtered["duplicate"])
	assert.Equal(t, int64(1), s.Scored)
	assert.Equal(t, int64(1), s.AlertEligible)
	assert.Equal(t, int64(1), s.Enriched)
}

func TestBalancedWalletNeverReachesScoring(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)
	h.data.PositionsByWallet["0xwhale"] = []domain.Position{
		{ConditionID: "0xcond", Outcome: "Yes", OutcomeIndex: 0, Size: 1000},
		{ConditionID: "0xcond", Outcome: "No", OutcomeIndex: 1, Size: 950},
	}

	h.run(t, whaleTrade("0xt1"))

	assert.Equal(t, 0, h.sink.count())
	assert.Equal(t, int64(1), h.monitor.Snapshot().Filtered["lp_balanced"])
	assert.Equal(t, 0, h.gamma.CallCount("profile"), "a discarded trade must not trigger profile lookups")
	assert.Equal(t, int64(0), h.monitor.Snapshot().Scored)
}

func TestSmallTradeTriggersNoLookupsAtAll(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)

	small := whaleTrade("0xt1")
	small.Size = 285.71
	small.Notional = decimal.NewFromInt(100)
	h.run(t, small)

	assert.Equal(t, 0, h.sink.count())
	assert.Equal(t, int64(1), h.monitor.Snapshot().Filtered["below_min_size"])
	assert.Equal(t, 0, h.data.CallCount("positions"))
	assert.Equal(t, 0, h.data.CallCount("trade_summary"))
	assert.Equal(t, 0, h.gamma.CallCount("profile"))
	assert.Equal(t, 0, h.gamma.CallCount("market"))
}

func TestProfileLookupFailureDegradesToPartialScore(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)
	h.gamma.ErrOn["profile"] = assert.AnError

	h.run(t, whaleTrade("0xt1"))

	// Timing and longshot still score, but 17 points stays under the bar.
	s := h.monitor.Snapshot()
	assert.Equal(t, int64(1), s.LookupErrors)
	assert.Equal(t, int64(1), s.Scored)
	assert.Equal(t, int64(0), s.AlertEligible)
	assert.Equal(t, 0, h.sink.count())
}

func TestPositionsLookupFailureStillAlerts(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)
	h.data.ErrOn["positions"] = assert.AnError

	h.run(t, whaleTrade("0xt1"))

	// The LP filter fails open and scoring runs without the concentration
	// signal, but the failure is still visible in the counters.
	require.Equal(t, 1, h.sink.count())
	assert.Equal(t, 43, h.sink.first().Score.Total)

	s := h.monitor.Snapshot()
	assert.Equal(t, int64(1), s.LookupErrors)
	assert.Equal(t, int64(1), s.AlertEligible)
	assert.Equal(t, 2, h.data.CallCount("positions"),
		"failures are never cached, so filter and scoring each retried")
}

func TestExcludedMarketCaughtAfterFirstFetch(t *testing.T) {
	h := newHarness(t, pipelineConfig())
	seedWhaleContext(h)
	h.gamma.MarketByID["0xcond"].Tags = []string{"sports"}

	// First trade passes the cold-cache exclusion filter, gets the market
	// fetched, and is discarded on the fresh data. The second is caught by
	// the filter straight from cache.
	h.run(t, whaleTrade("0xt1"), whaleTrade("0xt2"))

	assert.Equal(t, 0, h.sink.count())
	assert.Equal(t, int64(2), h.monitor.Snapshot().Filtered["excluded_market"])
	assert.Equal(t, 1, h.gamma.CallCount("market"), "market fetched once, then served from cache")
	assert.Equal(t, 1, h.gamma.CallCount("profile"), "only the first trade got as far as enrichment")
}

type panicEnricher struct{}

func (panicEnricher) Profile(context.Context, string) (*domain.WalletProfile, error) {
	panic("exploding enricher")
}

func (panicEnricher) Market(context.Context, string) (*domain.MarketInfo, error) {
	return nil, nil
}

func (panicEnricher) Positions(context.Context, string) ([]domain.Position, error) {
	return nil, nil
}

func TestPanicInOneTradeDoesNotKillThePipeline(t *testing.T) {
	cfg := pipelineConfig()
	engine, err := score.FromConfig(cfg)
	require.NoError(t, err)

	provider := enrich.NewProvider(lookup.NewMockDataAPI(), lookup.NewMockGammaAPI(), cfg)
	chain := filter.NewDefaultChain(
		cache.NewSeenCache(cfg.DedupWindow),
		provider,
		provider,
		cfg.MinTradeUSD,
		cfg.LPBalanceRatio,
	)
	sink := &capturingSink{}
	monitor := stats.NewMonitor()
	trades := make(chan *domain.Trade, 4)
	pipe := New(trades, chain, panicEnricher{}, engine, sink, monitor, cfg.MinAlertScore)

	go pipe.Run(context.Background())
	trades <- whaleTrade("0xt1")
	trades <- whaleTrade("0xt2")
	close(trades)

	select {
	case <-pipe.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline died instead of containing the panic")
	}
	assert.Equal(t, 0, sink.count())
}
