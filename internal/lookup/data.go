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

// historyLimit bounds the trade sample used for the history summary.
const historyLimit = 100

// DataClient reads wallet positions and trade history from the data API.
type DataClient struct {
	rest   *resty.Client
	limits *ratelimit.Manager
}

var _ DataAPI = (*DataClient)(nil)

// NewDataClient creates a data API client rooted at baseURL.
func NewDataClient(baseURL string, timeout time.Duration, limits *ratelimit.Manager) *DataClient {
	return &DataClient{
		rest:   newRESTClient(baseURL, timeout),
		limits: limits,
	}
}

// Positions fetches the wallet's open positions across markets.
func (c *DataClient) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	const endpoint = "data:positions:get"
	if err := wait(ctx, c.limits, endpoint); err != nil {
		return nil, netErr(endpoint, err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user":  wallet,
			"limit": "100",
		}).
		Get("/positions")
	if err != nil {
		return nil, netErr(endpoint, err)
	}
	if !resp.IsSuccess() {
		return nil, statusErr(endpoint, resp.StatusCode(), errors.Errorf("%s", resp.Status()))
	}

	var dtos []dataPosition
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, decodeErr(endpoint, errors.Wrap(err, "positions payload"))
	}

	positions := make([]domain.Position, 0, len(dtos))
	for i := range dtos {
		positions = append(positions, dtos[i].toDomain())
	}
	return positions, nil
}

// TradeSummary samples the wallet's recent taker fills and reduces them to
// the count and average size the size-anomaly signal works from. A wallet
// with no history yields a zero summary, not an error.
func (c *DataClient) TradeSummary(ctx context.Context, wallet string) (TradeSummary, error) {
	const endpoint = "data:trades:get"
	if err := wait(ctx, c.limits, endpoint); err != nil {
		return TradeSummary{}, netErr(endpoint, err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user":      wallet,
			"takerOnly": "true",
			"limit":     strconv.Itoa(historyLimit),
		}).
		Get("/trades")
	if err != nil {
		return TradeSummary{}, netErr(endpoint, err)
	}
	if !resp.IsSuccess() {
		return TradeSummary{}, statusErr(endpoint, resp.StatusCode(), errors.Errorf("%s", resp.Status()))
	}

	var dtos []dataTrade
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return TradeSummary{}, decodeErr(endpoint, errors.Wrap(err, "trades payload"))
	}

	var total float64
	count := 0
	for i := range dtos {
		if usd := dtos[i].tradeUSD(); usd > 0 {
			total += usd
			count++
		}
	}

	summary := TradeSummary{TradeCount: count}
	if count > 0 {
		summary.AvgTradeUSD = total / float64(count)
	}
	return summary, nil
}
