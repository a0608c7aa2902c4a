package marketdata

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// OnDownloadProgress reports written bars out of the total.
type OnDownloadProgress = func(current int, total int, message string)

// ClientConfig selects and configures the source behind a Client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance file csv"`
	Interval      Timespan
	DataPath      string
	PolygonApiKey string `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters of a download. An empty Format
// writes Parquet.
type DownloadParams struct {
	Ticker    string        `validate:"required"`
	StartDate time.Time     `validate:"required"`
	EndDate   time.Time     `validate:"required,gtefield=StartDate"`
	OutputDir string        `validate:"required"`
	Format    writer.Format `validate:"omitempty,oneof=parquet csv"`
}

// Client fetches bars from one source and can persist them as Parquet or CSV
// files readable by the file and csv providers.
type Client struct {
	source   Source
	interval Timespan
	validate *validator.Validate
	logger   *logger.Logger
}

// NewSource builds the source described by config.
func NewSource(config ClientConfig, log *logger.Logger) (Source, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "invalid market data configuration", err)
	}

	interval := config.Interval
	if interval == "" {
		interval = TimespanOneDay
	}

	if err := interval.Validate(); err != nil {
		return nil, err
	}

	switch config.ProviderType {
	case provider.ProviderPolygon:
		client, err := provider.NewPolygonClient(config.PolygonApiKey, log)
		if err != nil {
			return nil, err
		}

		return client.WithInterval(interval.Multiplier(), interval.Timespan()), nil
	case provider.ProviderBinance:
		return provider.NewBinanceClient(log).WithInterval(string(interval)), nil
	case provider.ProviderFile:
		if config.DataPath == "" {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "file provider requires a data path")
		}

		client, err := provider.NewFileClient(config.DataPath, log)
		if err != nil {
			return nil, err
		}

		return client, nil
	case provider.ProviderCSV:
		if config.DataPath == "" {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "csv provider requires a data path")
		}

		return provider.NewCSVClient(config.DataPath), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", config.ProviderType)
	}
}

// NewClient creates a client for the source described by config.
func NewClient(config ClientConfig, log *logger.Logger) (*Client, error) {
	source, err := NewSource(config, log)
	if err != nil {
		return nil, err
	}

	client := NewClientWithSource(source, log)
	if config.Interval != "" {
		client.interval = config.Interval
	}

	return client, nil
}

// NewClientWithSource wraps an existing source.
func NewClientWithSource(source Source, log *logger.Logger) *Client {
	return &Client{
		source:   source,
		interval: TimespanOneDay,
		validate: validator.New(),
		logger:   log.Named("marketdata"),
	}
}

func (c *Client) Name() string {
	return c.source.Name()
}

// Close releases the source when it holds resources, like the DuckDB
// connection of the file provider.
func (c *Client) Close() error {
	if closer, ok := c.source.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Fetch returns the bars of ticker and checks them before handing them out.
func (c *Client) Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error) {
	if ticker == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "ticker is required")
	}

	series, err := c.source.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if err := types.ValidatePriceSeries(series); err != nil {
		return nil, err
	}

	return series, nil
}

// Download fetches the bars of params.Ticker and writes them to a file
// inside params.OutputDir. It returns the path of the file.
func (c *Client) Download(ctx context.Context, params DownloadParams, onProgress OnDownloadProgress) (path string, err error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	series, err := c.Fetch(ctx, params.Ticker, params.StartDate, params.EndDate)
	if err != nil {
		return "", err
	}

	w, err := writer.New(params.Format, filepath.Join(params.OutputDir, c.OutputFileName(params)), c.logger)
	if err != nil {
		return "", err
	}

	if err := w.Initialize(); err != nil {
		return "", err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	message := fmt.Sprintf("Writing %s", params.Ticker)

	for i, bar := range series {
		if err := errors.FromContext(ctx, "download interrupted"); err != nil {
			return "", err
		}

		if err := w.Write(params.Ticker, bar); err != nil {
			return "", err
		}

		if onProgress != nil {
			onProgress(i+1, len(series), message)
		}
	}

	path, err = w.Finalize()
	if err != nil {
		return "", err
	}

	c.logger.Info("Downloaded market data",
		zap.String("provider", c.source.Name()),
		zap.String("ticker", params.Ticker),
		zap.Int("bars", len(series)),
		zap.String("format", params.Format.Extension()),
		zap.String("path", path),
	)

	return path, nil
}

// OutputFileName names a download as TICKER_START_END_INTERVAL.EXT.
func (c *Client) OutputFileName(params DownloadParams) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		params.Ticker,
		params.StartDate.Format(time.DateOnly),
		params.EndDate.Format(time.DateOnly),
		c.interval,
		params.Format.Extension())
}
