package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// binancePageSize is the number of klines requested per call.
const binancePageSize = 1000

// binanceInvalidSymbol is the API error code for an unknown trading pair.
const binanceInvalidSymbol = -1121

// BinanceKlinesService is the subset of the klines service used here.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the subset of the binance client used here.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIAdapter struct {
	client *binance.Client
}

func (a *binanceAPIAdapter) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesAdapter{service: a.client.NewKlinesService()}
}

type binanceKlinesAdapter struct {
	service *binance.KlinesService
}

func (a *binanceKlinesAdapter) Symbol(symbol string) BinanceKlinesService {
	a.service.Symbol(symbol)

	return a
}

func (a *binanceKlinesAdapter) Interval(interval string) BinanceKlinesService {
	a.service.Interval(interval)

	return a
}

func (a *binanceKlinesAdapter) StartTime(startTime int64) BinanceKlinesService {
	a.service.StartTime(startTime)

	return a
}

func (a *binanceKlinesAdapter) EndTime(endTime int64) BinanceKlinesService {
	a.service.EndTime(endTime)

	return a
}

func (a *binanceKlinesAdapter) Limit(limit int) BinanceKlinesService {
	a.service.Limit(limit)

	return a
}

func (a *binanceKlinesAdapter) Do(ctx context.Context) ([]*binance.Kline, error) {
	return a.service.Do(ctx)
}

// BinanceClient fetches klines from the public Binance market data API.
type BinanceClient struct {
	apiClient  BinanceAPIClient
	interval   string
	backOff    func(ctx context.Context) backoff.BackOff
	logger     *logger.Logger
}

// NewBinanceClient creates a daily kline client. No credentials are needed.
func NewBinanceClient(log *logger.Logger) *BinanceClient {
	return NewBinanceClientWithAPI(&binanceAPIAdapter{client: binance.NewClient("", "")}, log)
}

// NewBinanceClientWithAPI creates a client on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient, log *logger.Logger) *BinanceClient {
	return &BinanceClient{
		apiClient:  apiClient,
		interval:   "1d",
		backOff:    DefaultBackOff,
		logger:     log.Named("binance"),
	}
}

// WithInterval sets the kline interval, e.g. "1h" or "1d".
func (c *BinanceClient) WithInterval(interval string) *BinanceClient {
	c.interval = interval

	return c
}

// WithBackOff replaces the retry policy of transient failures.
func (c *BinanceClient) WithBackOff(newBackOff func(ctx context.Context) backoff.BackOff) *BinanceClient {
	c.backOff = newBackOff

	return c
}

func (c *BinanceClient) Name() string {
	return string(ProviderBinance)
}

// Fetch pages through the klines of ticker between start and end inclusive.
func (c *BinanceClient) Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	var bars []types.PriceBar

	endMillis := end.UnixMilli()
	current := start.UnixMilli()

	for current <= endMillis {
		var klines []*binance.Kline

		err := retry(ctx, c.backOff(ctx), func() error {
			var err error

			klines, err = c.apiClient.NewKlinesService().
				Symbol(ticker).
				Interval(c.interval).
				StartTime(current).
				EndTime(endMillis).
				Limit(binancePageSize).
				Do(ctx)

			return classifyBinanceError(ticker, err)
		})
		if err != nil {
			return nil, err
		}

		page, err := convertKlines(klines)
		if err != nil {
			return nil, err
		}

		bars = append(bars, page...)

		if len(klines) < binancePageSize {
			break
		}

		// close time + 1ms is the open time of the next kline
		current = klines[len(klines)-1].CloseTime + 1
	}

	series := normalize(bars, start, end)
	if len(series) == 0 {
		return nil, emptyRange(ticker, start, end)
	}

	c.logger.Debug("Fetched binance klines",
		zap.String("ticker", ticker),
		zap.String("interval", c.interval),
		zap.Int("bars", len(series)),
	)

	return series, nil
}

// convertKlines parses the decimal strings of the klines into bars.
func convertKlines(klines []*binance.Kline) ([]types.PriceBar, error) {
	bars := make([]types.PriceBar, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)

		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err,
					"invalid kline value %q at %d", raw, k.OpenTime)
			}

			values[i] = value
		}

		bars = append(bars, types.PriceBar{
			Date:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	return bars, nil
}

// classifyBinanceError maps binance failures onto the fetch error kinds.
func classifyBinanceError(ticker string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == binanceInvalidSymbol {
			return errors.Wrapf(errors.ErrCodeUnknownTicker, err, "unknown ticker %s", ticker)
		}

		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "binance rejected the request for %s", ticker)
	}

	if errors.KindOf(err) == errors.KindCancelled || errors.KindOf(err) == errors.KindTimedOut {
		return err
	}

	return errors.Wrapf(errors.ErrCodeTransientFetch, err, "binance request for %s failed", ticker)
}
