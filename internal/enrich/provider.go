package enrich

import (
	"context"
	"time"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/lookup"
	"github.com/vikram1211/polymarket-whale-bot/pkg/cache"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// Provider is the single gate between the pipeline and the lookup services.
// Every read goes cache-first; misses hit upstream and successful results are
// stored with the entity's ttl. Failures come back typed and are never
// cached, so the next trade that needs the entity retries.
//
// Two trades racing on the same cold key may both hit upstream. That is an
// accepted trade for not holding a lock across a network call.
type Provider struct {
	data  lookup.DataAPI
	gamma lookup.GammaAPI

	profiles  *cache.InMemoryCache[string, *domain.WalletProfile]
	positions *cache.InMemoryCache[string, []domain.Position]
	markets   *cache.InMemoryCache[string, *domain.MarketInfo]

	excluded map[string]struct{}

	// degradedTTL caps how long a profile fetched without its history
	// summary stays cached, so the summary is retried well before the
	// full profile ttl would.
	degradedTTL time.Duration
}

const degradedProfileTTL = 5 * time.Minute

// NewProvider wires the lookup clients to their caches.
func NewProvider(data lookup.DataAPI, gamma lookup.GammaAPI, cfg *config.Config) *Provider {
	excluded := make(map[string]struct{}, len(cfg.ExcludedTags))
	for _, tag := range cfg.ExcludedTags {
		excluded[tag] = struct{}{}
	}

	return &Provider{
		data:        data,
		gamma:       gamma,
		profiles:    cache.NewInMemoryCache[string, *domain.WalletProfile](cfg.ProfileCacheTTL),
		positions:   cache.NewInMemoryCache[string, []domain.Position](cfg.PositionsCacheTTL),
		markets:     cache.NewInMemoryCache[string, *domain.MarketInfo](cfg.MarketsCacheTTL),
		excluded:    excluded,
		degradedTTL: degradedProfileTTL,
	}
}

// Profile returns the wallet's profile merged with its trade history summary.
// The profile lookup is load-bearing: its failure fails the whole call. The
// history summary is not: when it fails the profile comes back with zero
// history, cached only for degradedTTL so the next trade past that window
// retries the summary instead of riding a zero-history entry for hours.
func (p *Provider) Profile(ctx context.Context, wallet string) (*domain.WalletProfile, error) {
	if profile, ok := p.profiles.Get(wallet); ok {
		return profile, nil
	}

	profile, err := p.gamma.Profile(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	summary, err := p.data.TradeSummary(ctx, wallet)
	if err != nil {
		logger.Debugf("trade summary unavailable for %s: %v", domain.ShortWallet(wallet), err)
		ttl = p.degradedTTL
	} else {
		profile.TradeCount = summary.TradeCount
		profile.AvgTradeUSD = summary.AvgTradeUSD
	}

	p.profiles.Set(wallet, profile, ttl)
	return profile, nil
}

// Positions returns the wallet's open positions across all markets.
func (p *Provider) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	if positions, ok := p.positions.Get(wallet); ok {
		return positions, nil
	}

	positions, err := p.data.Positions(ctx, wallet)
	if err != nil {
		return nil, err
	}

	p.positions.Set(wallet, positions, 0)
	return positions, nil
}

// Market returns metadata for a market, with the excluded flag already
// derived from the configured tag set.
func (p *Provider) Market(ctx context.Context, conditionID string) (*domain.MarketInfo, error) {
	if info, ok := p.markets.Get(conditionID); ok {
		return info, nil
	}

	info, err := p.gamma.Market(ctx, conditionID)
	if err != nil {
		return nil, err
	}

	info.Excluded = info.HasAnyTag(p.excluded)
	p.markets.Set(conditionID, info, 0)
	return info, nil
}

// CachedMarket is the cache-only read the exclusion filter uses: a pure
// membership test with no upstream call, whatever the cache state.
func (p *Provider) CachedMarket(conditionID string) (*domain.MarketInfo, bool) {
	return p.markets.Get(conditionID)
}

// WarmMarkets bulk-loads the top active markets into the markets cache so
// tag exclusion has data from the first trade on. Best-effort: a failure
// leaves the cache cold and the filter failing open.
func (p *Provider) WarmMarkets(ctx context.Context, limit int) (int, error) {
	infos, err := p.gamma.ActiveMarkets(ctx, limit)
	if err != nil {
		return 0, err
	}

	for _, info := range infos {
		info.Excluded = info.HasAnyTag(p.excluded)
		p.markets.Set(info.ConditionID, info, 0)
	}
	return len(infos), nil
}

// StartSweeps bounds cache memory over long runs. Lazy eviction already
// keeps reads correct; this just reclaims entries nothing reads anymore.
func (p *Provider) StartSweeps(ctx context.Context) {
	p.profiles.StartSweep(ctx, 10*time.Minute)
	p.positions.StartSweep(ctx, 10*time.Minute)
	p.markets.StartSweep(ctx, time.Hour)
}
