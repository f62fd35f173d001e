package lookup

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/pkg/ratelimit"
)

// GammaClient reads account profiles and market metadata from the gamma API.
type GammaClient struct {
	rest   *resty.Client
	limits *ratelimit.Manager
}

var _ GammaAPI = (*GammaClient)(nil)

// NewGammaClient creates a gamma API client rooted at baseURL.
func NewGammaClient(baseURL string, timeout time.Duration, limits *ratelimit.Manager) *GammaClient {
	return &GammaClient{
		rest:   newRESTClient(baseURL, timeout),
		limits: limits,
	}
}

// Profile fetches the public profile for a wallet. A profile without a
// creation timestamp is a schema violation here, not a scoring concern.
func (c *GammaClient) Profile(ctx context.Context, wallet string) (*domain.WalletProfile, error) {
	const endpoint = "gamma:profile:get"
	if err := wait(ctx, c.limits, endpoint); err != nil {
		return nil, netErr(endpoint, err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("address", wallet).
		Get("/public-profile")
	if err != nil {
		return nil, netErr(endpoint, err)
	}
	if resp.StatusCode() == 404 {
		return nil, notFoundErr(endpoint, errors.Errorf("no profile for %s", wallet))
	}
	if !resp.IsSuccess() {
		return nil, statusErr(endpoint, resp.StatusCode(), errors.Errorf("%s", resp.Status()))
	}

	var dto gammaProfile
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return nil, decodeErr(endpoint, errors.Wrap(err, "profile payload"))
	}
	profile := dto.toDomain(wallet)
	if profile.CreatedAt.IsZero() {
		return nil, decodeErr(endpoint, errors.Errorf("profile for %s has no createdAt", wallet))
	}
	return profile, nil
}

// Market fetches metadata for one market by condition id.
func (c *GammaClient) Market(ctx context.Context, conditionID string) (*domain.MarketInfo, error) {
	const endpoint = "gamma:markets:get"
	if err := wait(ctx, c.limits, endpoint); err != nil {
		return nil, netErr(endpoint, err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("condition_ids", conditionID).
		Get("/markets")
	if err != nil {
		return nil, netErr(endpoint, err)
	}
	if !resp.IsSuccess() {
		return nil, statusErr(endpoint, resp.StatusCode(), errors.Errorf("%s", resp.Status()))
	}

	var dtos []gammaMarket
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, decodeErr(endpoint, errors.Wrap(err, "markets payload"))
	}
	if len(dtos) == 0 {
		return nil, notFoundErr(endpoint, errors.Errorf("no market for condition %s", conditionID))
	}

	info := dtos[0].toDomain()
	if info.ConditionID == "" {
		info.ConditionID = conditionID
	}
	return info, nil
}

// ActiveMarkets lists the highest-volume open markets, used to warm the
// markets cache at startup so tag exclusion works before first enrichment.
func (c *GammaClient) ActiveMarkets(ctx context.Context, limit int) ([]*domain.MarketInfo, error) {
	const endpoint = "gamma:markets:get"
	if err := wait(ctx, c.limits, endpoint); err != nil {
		return nil, netErr(endpoint, err)
	}
	if limit <= 0 {
		limit = 100
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active":    "true",
			"closed":    "false",
			"order":     "volume24hr",
			"ascending": "false",
			"limit":     strconv.Itoa(limit),
		}).
		Get("/markets")
	if err != nil {
		return nil, netErr(endpoint, err)
	}
	if !resp.IsSuccess() {
		return nil, statusErr(endpoint, resp.StatusCode(), errors.Errorf("%s", resp.Status()))
	}

	var dtos []gammaMarket
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, decodeErr(endpoint, errors.Wrap(err, "markets payload"))
	}

	infos := make([]*domain.MarketInfo, 0, len(dtos))
	for i := range dtos {
		info := dtos[i].toDomain()
		if info.ConditionID == "" {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}
