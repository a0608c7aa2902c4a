package main

import (
	"context"
	"os"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const polygonAPIKeyEnv = "POLYGON_API_KEY"

// sourceFlags select the market data provider.
func sourceFlags(defaultProvider string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Market data provider (file, csv, polygon, binance)",
			Value:   defaultProvider,
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Parquet or CSV file read by the file and csv providers",
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Bar size, e.g. 1d, 4h or 5m",
			Value:   string(marketdata.TimespanOneDay),
		},
		&cli.StringFlag{
			Name:  "polygon-api-key",
			Usage: "Polygon.io API key, defaults to $" + polygonAPIKeyEnv,
		},
	}
}

// dataFlags select the provider, the instrument and the time range.
func dataFlags() []cli.Flag {
	return append(sourceFlags(string(provider.ProviderFile)),
		&cli.StringFlag{
			Name:    "symbol",
			Aliases: []string{"t"},
			Usage:   "Ticker to load, defaults to the configured symbol",
		},
		&cli.TimestampFlag{
			Name:  "start",
			Usage: "First day to load (YYYY-MM-DD)",
			Config: cli.TimestampConfig{
				Layouts: []string{time.DateOnly},
			},
		},
		&cli.TimestampFlag{
			Name:  "end",
			Usage: "Last day to load (YYYY-MM-DD), inclusive",
			Config: cli.TimestampConfig{
				Layouts: []string{time.DateOnly},
			},
		},
	)
}

func clientConfig(cmd *cli.Command) marketdata.ClientConfig {
	apiKey := cmd.String("polygon-api-key")
	if apiKey == "" {
		apiKey = os.Getenv(polygonAPIKeyEnv)
	}

	return marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		Interval:      marketdata.Timespan(cmd.String("interval")),
		DataPath:      cmd.String("data"),
		PolygonApiKey: apiKey,
	}
}

// symbol returns the ticker flag, falling back to the configured symbol.
func (a *app) symbol(cmd *cli.Command) (string, error) {
	if symbol := cmd.String("symbol"); symbol != "" {
		return symbol, nil
	}

	if a.config.Symbol != "" {
		return a.config.Symbol, nil
	}

	return "", errors.New(errors.ErrCodeMissingParameter, "symbol is required, pass --symbol or set symbol in the config")
}

// timeRange resolves the range to load. Flags win over the configuration;
// without either the whole history up to now is requested.
func (a *app) timeRange(cmd *cli.Command) (time.Time, time.Time) {
	start := time.Unix(0, 0).UTC()
	if a.config.StartTime.IsSome() {
		start = a.config.StartTime.Unwrap()
	}

	if cmd.IsSet("start") {
		start = cmd.Timestamp("start")
	}

	end := time.Now().UTC()
	if a.config.EndTime.IsSome() {
		end = a.config.EndTime.Unwrap()
	}

	if cmd.IsSet("end") {
		end = endOfDay(cmd.Timestamp("end"))
	}

	return start, end
}

func endOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Nanosecond)
}

// loadSeries fetches the bars selected by the data flags.
func (a *app) loadSeries(ctx context.Context, cmd *cli.Command) (types.PriceSeries, string, error) {
	symbol, err := a.symbol(cmd)
	if err != nil {
		return nil, "", err
	}

	client, err := marketdata.NewClient(clientConfig(cmd), a.logger)
	if err != nil {
		return nil, "", err
	}
	defer client.Close()

	start, end := a.timeRange(cmd)

	series, err := client.Fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, "", err
	}

	a.logger.Info("Loaded price series",
		zap.String("provider", client.Name()),
		zap.String("symbol", symbol),
		zap.Int("bars", len(series)),
	)

	return series, symbol, nil
}
