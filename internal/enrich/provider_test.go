package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/lookup"
)

func testConfig() *config.Config {
	return &config.Config{
		ProfileCacheTTL:   time.Hour,
		PositionsCacheTTL: 5 * time.Minute,
		MarketsCacheTTL:   24 * time.Hour,
		ExcludedTags:      []string{"sports"},
	}
}

func newTestProvider() (*Provider, *lookup.MockDataAPI, *lookup.MockGammaAPI) {
	data := lookup.NewMockDataAPI()
	gamma := lookup.NewMockGammaAPI()
	return NewProvider(data, gamma, testConfig()), data, gamma
}

func TestProfileCachedAfterFirstFetch(t *testing.T) {
	p, data, gamma := newTestProvider()
	ctx := context.Background()

	gamma.ProfileByWallet["0xwallet"] = &domain.WalletProfile{
		Wallet:    "0xwallet",
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	data.SummaryByWallet["0xwallet"] = lookup.TradeSummary{TradeCount: 12, AvgTradeUSD: 250}

	first, err := p.Profile(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Equal(t, 12, first.TradeCount)
	assert.Equal(t, 250.0, first.AvgTradeUSD)

	second, err := p.Profile(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Equal(t, 1, gamma.CallCount("profile"))
	assert.Equal(t, 1, data.CallCount("trade_summary"))
}

func TestProfileFailureIsNotCached(t *testing.T) {
	p, _, gamma := newTestProvider()
	ctx := context.Background()

	_, err := p.Profile(ctx, "0xunknown")
	require.Error(t, err)

	var lookupErr *lookup.Error
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, lookup.KindNotFound, lookupErr.Kind)

	// a second call retries instead of serving the failure from cache
	_, err = p.Profile(ctx, "0xunknown")
	require.Error(t, err)
	assert.Equal(t, 2, gamma.CallCount("profile"))
}

func TestProfileDegradesWithoutHistorySummary(t *testing.T) {
	p, data, gamma := newTestProvider()
	ctx := context.Background()

	gamma.ProfileByWallet["0xwallet"] = &domain.WalletProfile{
		Wallet:    "0xwallet",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	data.ErrOn["trade_summary"] = errFake("data api down")

	profile, err := p.Profile(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Zero(t, profile.TradeCount)
	assert.Zero(t, profile.AvgTradeUSD)
}

func TestDegradedProfileExpiresEarly(t *testing.T) {
	p, data, gamma := newTestProvider()
	p.degradedTTL = 25 * time.Millisecond
	ctx := context.Background()

	gamma.ProfileByWallet["0xwallet"] = &domain.WalletProfile{Wallet: "0xwallet"}
	data.ErrOn["trade_summary"] = errFake("data api down")

	_, err := p.Profile(ctx, "0xwallet")
	require.NoError(t, err)

	// still inside the shortened window: served from cache
	_, err = p.Profile(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Equal(t, 1, gamma.CallCount("profile"))

	time.Sleep(60 * time.Millisecond)
	delete(data.ErrOn, "trade_summary")
	data.SummaryByWallet["0xwallet"] = lookup.TradeSummary{TradeCount: 9, AvgTradeUSD: 120}

	// past the window the zero-history entry is gone and the retry
	// picks up the real summary
	profile, err := p.Profile(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Equal(t, 2, gamma.CallCount("profile"))
	assert.Equal(t, 9, profile.TradeCount)
}

func TestPositionsCached(t *testing.T) {
	p, data, _ := newTestProvider()
	ctx := context.Background()

	data.PositionsByWallet["0xlp"] = []domain.Position{
		{ConditionID: "0xm", OutcomeIndex: 0, Size: 500, CurPrice: 0.5},
	}

	first, err := p.Positions(ctx, "0xlp")
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = p.Positions(ctx, "0xlp")
	require.NoError(t, err)
	assert.Equal(t, 1, data.CallCount("positions"))
}

func TestMarketDerivesExcludedFlag(t *testing.T) {
	p, _, gamma := newTestProvider()
	ctx := context.Background()

	gamma.MarketByID["0xnba"] = &domain.MarketInfo{
		ConditionID: "0xnba",
		Tags:        []string{"sports", "nba"},
	}
	gamma.MarketByID["0xelection"] = &domain.MarketInfo{
		ConditionID: "0xelection",
		Tags:        []string{"politics"},
	}

	nba, err := p.Market(ctx, "0xnba")
	require.NoError(t, err)
	assert.True(t, nba.Excluded)

	election, err := p.Market(ctx, "0xelection")
	require.NoError(t, err)
	assert.False(t, election.Excluded)
}

func TestCachedMarketIsCacheOnly(t *testing.T) {
	p, _, gamma := newTestProvider()

	_, ok := p.CachedMarket("0xcold")
	assert.False(t, ok)
	assert.Zero(t, gamma.CallCount("market"), "cache-only read must not call upstream")
}

func TestWarmMarketsPopulatesCache(t *testing.T) {
	p, _, gamma := newTestProvider()
	ctx := context.Background()

	gamma.Active = []*domain.MarketInfo{
		{ConditionID: "0xa", Tags: []string{"sports"}},
		{ConditionID: "0xb", Tags: []string{"politics"}},
	}

	n, err := p.WarmMarkets(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, ok := p.CachedMarket("0xa")
	require.True(t, ok)
	assert.True(t, a.Excluded)

	b, ok := p.CachedMarket("0xb")
	require.True(t, ok)
	assert.False(t, b.Excluded)
}

type errFake string

func (e errFake) Error() string { return string(e) }
