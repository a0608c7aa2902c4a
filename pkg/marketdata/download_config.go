package marketdata

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// DownloadConfig describes a download from a remote provider to a Parquet or
// CSV file.
type DownloadConfig struct {
	Provider  string `json:"provider" jsonschema:"title=Provider,description=Remote market data provider,enum=polygon,enum=binance,required" validate:"required,oneof=polygon binance"`
	Ticker    string `json:"ticker" jsonschema:"title=Ticker,description=The trading symbol to download data for (e.g. SPY or BTCUSDT),required" validate:"required"`
	StartDate string `json:"startDate" jsonschema:"title=Start Date,description=Start date in RFC3339 or YYYY-MM-DD,required" validate:"required"`
	EndDate   string `json:"endDate" jsonschema:"title=End Date,description=End date in RFC3339 or YYYY-MM-DD,required" validate:"required"`
	Interval  string `json:"interval" jsonschema:"title=Interval,description=Bar size,enum=1s,enum=1m,enum=3m,enum=5m,enum=15m,enum=30m,enum=1h,enum=2h,enum=4h,enum=6h,enum=8h,enum=12h,enum=1d,enum=3d,enum=1w,enum=1M,default=1d" validate:"omitempty,oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
	ApiKey    string `json:"apiKey,omitempty" jsonschema:"title=API Key,description=Polygon.io API key" validate:"required_if=Provider polygon"`
	Format    string `json:"format,omitempty" jsonschema:"title=Format,description=Output file format,enum=parquet,enum=csv,default=parquet" validate:"omitempty,oneof=parquet csv"`
}

// ParseDownloadConfig parses and validates a JSON download configuration.
func ParseDownloadConfig(data []byte) (DownloadConfig, error) {
	var config DownloadConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return DownloadConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse download config", err)
	}

	if err := config.Validate(); err != nil {
		return DownloadConfig{}, err
	}

	return config, nil
}

// Validate checks the fields and the date formats.
func (c DownloadConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download config", err)
	}

	start, err := parseDate(c.StartDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid startDate", err)
	}

	end, err := parseDate(c.EndDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid endDate", err)
	}

	if end.Before(start) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "endDate is before startDate")
	}

	return nil
}

// ToClientConfig returns the configuration of the source to download from.
func (c DownloadConfig) ToClientConfig() ClientConfig {
	return ClientConfig{
		ProviderType:  provider.ProviderType(c.Provider),
		Interval:      c.interval(),
		PolygonApiKey: c.ApiKey,
	}
}

// ToDownloadParams converts the configuration into download parameters
// writing into outputDir.
func (c DownloadConfig) ToDownloadParams(outputDir string) (DownloadParams, error) {
	start, err := parseDate(c.StartDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid startDate", err)
	}

	end, err := parseDate(c.EndDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid endDate", err)
	}

	return DownloadParams{
		Ticker:    c.Ticker,
		StartDate: start,
		EndDate:   end,
		OutputDir: outputDir,
		Format:    writer.Format(c.Format),
	}, nil
}

func (c DownloadConfig) interval() Timespan {
	if c.Interval == "" {
		return TimespanOneDay
	}

	return Timespan(c.Interval)
}

// parseDate accepts RFC3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	if date, err := time.Parse(time.RFC3339, value); err == nil {
		return date.UTC(), nil
	}

	return time.Parse(time.DateOnly, value)
}
