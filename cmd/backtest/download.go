package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func (a *app) downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download bars from Polygon.io or Binance into a Parquet or CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Remote provider (polygon, binance)",
			},
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"t"},
				Usage:   "Ticker to download, e.g. SPY or BTCUSDT",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date (YYYY-MM-DD or RFC3339)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date (YYYY-MM-DD or RFC3339)",
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
			&cli.StringFlag{
				Name:  "request",
				Usage: "JSON download config used instead of the flags above",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory receiving the file",
				Value:   "./data",
			},
			&cli.StringFlag{
				Name:  "file-format",
				Usage: "Output file format (parquet, csv)",
				Value: string(writer.FormatParquet),
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "Print the JSON schema of the download config and exit",
			},
		},
		Action: a.download,
	}
}

func (a *app) download(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("schema") {
		schema, err := marketdata.GetDownloadConfigSchema()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(a.stdout, schema)

		return err
	}

	config, err := downloadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := marketdata.NewClient(config.ToClientConfig(), a.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	params, err := config.ToDownloadParams(cmd.String("output-dir"))
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	path, err := client.Download(ctx, params, func(current int, total int, message string) {
		if bar == nil {
			bar = newProgressBar(a.stderr, total, message)
		}

		_ = bar.Set(current)
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.stdout, path)

	return err
}

// downloadConfig reads the request file or the flags. A missing Polygon key
// is taken from the environment.
func downloadConfig(cmd *cli.Command) (marketdata.DownloadConfig, error) {
	config := marketdata.DownloadConfig{
		Provider:  cmd.String("provider"),
		Ticker:    cmd.String("symbol"),
		StartDate: cmd.String("start"),
		EndDate:   cmd.String("end"),
		Interval:  cmd.String("interval"),
		ApiKey:    cmd.String("polygon-api-key"),
		Format:    cmd.String("file-format"),
	}

	if path := cmd.String("request"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return marketdata.DownloadConfig{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read %s", path)
		}

		config = marketdata.DownloadConfig{}
		if err := json.Unmarshal(data, &config); err != nil {
			return marketdata.DownloadConfig{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse %s", path)
		}
	}

	if config.ApiKey == "" && config.Provider == "polygon" {
		config.ApiKey = os.Getenv(polygonAPIKeyEnv)
	}

	if err := config.Validate(); err != nil {
		return marketdata.DownloadConfig{}, err
	}

	return config, nil
}
