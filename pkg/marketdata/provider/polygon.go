package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// PolygonAggsIterator is the subset of the polygon aggregate iterator used here.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client used here.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
	GetTickerDetails(ctx context.Context, params *models.GetTickerDetailsParams, options ...models.RequestOption) (*models.GetTickerDetailsResponse, error)
}

type polygonAPIAdapter struct {
	client *polygon.Client
}

func (a *polygonAPIAdapter) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

func (a *polygonAPIAdapter) GetTickerDetails(ctx context.Context, params *models.GetTickerDetailsParams, options ...models.RequestOption) (*models.GetTickerDetailsResponse, error) {
	return a.client.GetTickerDetails(ctx, params, options...)
}

// PolygonClient fetches aggregate bars from Polygon.io.
type PolygonClient struct {
	apiClient  PolygonAPIClient
	multiplier int
	timespan   models.Timespan
	backOff    func(ctx context.Context) backoff.BackOff
	logger     *logger.Logger
}

// NewPolygonClient creates a daily bar client for apiKey.
func NewPolygonClient(apiKey string, log *logger.Logger) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon API key is required")
	}

	return NewPolygonClientWithAPI(&polygonAPIAdapter{client: polygon.New(apiKey)}, log), nil
}

// NewPolygonClientWithAPI creates a client on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient, log *logger.Logger) *PolygonClient {
	return &PolygonClient{
		apiClient:  apiClient,
		multiplier: 1,
		timespan:   models.Day,
		backOff:    DefaultBackOff,
		logger:     log.Named("polygon"),
	}
}

// WithInterval sets the bar size, e.g. 5 and models.Minute for five minute bars.
func (c *PolygonClient) WithInterval(multiplier int, timespan models.Timespan) *PolygonClient {
	c.multiplier = multiplier
	c.timespan = timespan

	return c
}

// WithBackOff replaces the retry policy of transient failures.
func (c *PolygonClient) WithBackOff(newBackOff func(ctx context.Context) backoff.BackOff) *PolygonClient {
	c.backOff = newBackOff

	return c
}

func (c *PolygonClient) Name() string {
	return string(ProviderPolygon)
}

// Fetch returns the bars of ticker between start and end inclusive.
// Rate limits and server errors are retried with exponential backoff.
func (c *PolygonClient) Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	if err := retry(ctx, c.backOff(ctx), func() error {
		_, err := c.apiClient.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: ticker})

		return classifyPolygonError(ticker, err)
	}); err != nil {
		return nil, err
	}

	var bars []types.PriceBar

	err := retry(ctx, c.backOff(ctx), func() error {
		bars = bars[:0]

		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     ticker,
			Multiplier: c.multiplier,
			Timespan:   c.timespan,
			From:       models.Millis(start),
			To:         models.Millis(end),
		}.WithAdjusted(true).WithLimit(50000)

		iter := c.apiClient.ListAggs(ctx, params)
		for iter.Next() {
			agg := iter.Item()
			bars = append(bars, types.PriceBar{
				Date:   time.Time(agg.Timestamp).UTC(),
				Open:   agg.Open,
				High:   agg.High,
				Low:    agg.Low,
				Close:  agg.Close,
				Volume: agg.Volume,
			})
		}

		return classifyPolygonError(ticker, iter.Err())
	})
	if err != nil {
		return nil, err
	}

	series := normalize(bars, start, end)
	if len(series) == 0 {
		return nil, emptyRange(ticker, start, end)
	}

	c.logger.Debug("Fetched polygon aggregates",
		zap.String("ticker", ticker),
		zap.Int("bars", len(series)),
	)

	return series, nil
}

// classifyPolygonError maps polygon failures onto the fetch error kinds.
func classifyPolygonError(ticker string, err error) error {
	if err == nil {
		return nil
	}

	var response *models.ErrorResponse
	if errors.As(err, &response) {
		switch {
		case response.StatusCode == http.StatusNotFound:
			return errors.Wrapf(errors.ErrCodeUnknownTicker, err, "unknown ticker %s", ticker)
		case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= http.StatusInternalServerError:
			return errors.Wrapf(errors.ErrCodeTransientFetch, err, "polygon request for %s failed", ticker)
		default:
			return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "polygon rejected the request for %s", ticker)
		}
	}

	if errors.KindOf(err) == errors.KindCancelled || errors.KindOf(err) == errors.KindTimedOut {
		return err
	}

	// network failures carry no status code
	return errors.Wrapf(errors.ErrCodeTransientFetch, err, "polygon request for %s failed", ticker)
}
