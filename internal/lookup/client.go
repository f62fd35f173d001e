package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/pkg/ratelimit"
)

// DataAPI is the "data" style lookup service: wallet positions and trade
// history.
type DataAPI interface {
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)
	TradeSummary(ctx context.Context, wallet string) (TradeSummary, error)
}

// GammaAPI is the "metadata" style lookup service: account profiles and
// market metadata.
type GammaAPI interface {
	Profile(ctx context.Context, wallet string) (*domain.WalletProfile, error)
	Market(ctx context.Context, conditionID string) (*domain.MarketInfo, error)
	ActiveMarkets(ctx context.Context, limit int) ([]*domain.MarketInfo, error)
}

// newRESTClient builds the resty client shared by both lookup services.
// Proxy settings come from the environment (HTTP_PROXY / HTTPS_PROXY).
func newRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// honor Retry-After on 429 responses
			if resp.StatusCode() == 429 {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return d, nil
					}
				}
				return 10 * time.Second, nil
			}
			return 0, nil
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "polymarket-whale-bot/1.0")
}

// wait blocks on the client-side budget for an endpoint family before the
// request goes out. A nil manager disables limiting (tests).
func wait(ctx context.Context, limits *ratelimit.Manager, endpoint string) error {
	if limits == nil {
		return nil
	}
	return limits.Wait(ctx, endpoint)
}
