package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"github.com/urfave/cli/v3"
)

func (a *app) strategiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "List the strategy variants or print the parameter schema of one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Print the JSON schema of the parameters of this variant",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if name := cmd.String("schema"); name != "" {
				schema, err := a.registry.Schema(name)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(a.stdout, schema)

				return err
			}

			entries := a.registry.List()

			return emit(cmd, a.stdout, entries, func() textTable {
				t := textTable{headers: []string{"NAME", "TYPE", "DESCRIPTION"}}

				for _, entry := range entries {
					t.rows = append(t.rows, []string{entry.Name, string(entry.Type), entry.Description})
				}

				return t
			})
		},
	}
}

func (a *app) indicatorCommand() *cli.Command {
	return &cli.Command{
		Name:      "indicator",
		Usage:     "Compute an indicator over a price series and print it as CSV",
		ArgsUsage: "NAME [PARAM...]",
		Flags:     dataFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry := indicator.NewDefaultIndicatorRegistry()

			if cmd.Args().Len() == 0 {
				for _, name := range registry.ListIndicators() {
					fmt.Fprintln(a.stdout, name)
				}

				return nil
			}

			ind, err := registry.GetIndicator(types.IndicatorType(cmd.Args().First()))
			if err != nil {
				return err
			}

			if args := cmd.Args().Tail(); len(args) > 0 {
				if err := ind.Config(indicatorParams(args)...); err != nil {
					return err
				}
			}

			series, _, err := a.loadSeries(ctx, cmd)
			if err != nil {
				return err
			}

			output, err := ind.Calculate(series)
			if err != nil {
				return err
			}

			return writeIndicatorCSV(a.stdout, series, output)
		},
	}
}

// indicatorParams turns positional arguments into indicator parameters:
// integers, then floats, then plain strings.
func indicatorParams(args []string) []any {
	params := make([]any, 0, len(args))

	for _, arg := range args {
		if i, err := strconv.Atoi(arg); err == nil {
			params = append(params, i)

			continue
		}

		if f, err := strconv.ParseFloat(arg, 64); err == nil {
			params = append(params, f)

			continue
		}

		params = append(params, arg)
	}

	return params
}

// writeIndicatorCSV prints one row per bar with a column per output.
// Undefined values are left empty.
func writeIndicatorCSV(w io.Writer, series types.PriceSeries, output indicator.Output) error {
	columns := slices.Sorted(maps.Keys(output))

	writer := gocsv.DefaultCSVWriter(w)
	if err := writer.Write(append([]string{"date"}, columns...)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write CSV header", err)
	}

	for i, bar := range series {
		row := []string{bar.Date.Format(time.RFC3339)}

		for _, column := range columns {
			value := ""
			if v, err := output[column][i].Take(); err == nil {
				value = strconv.FormatFloat(v, 'f', -1, 64)
			}

			row = append(row, value)
		}

		if err := writer.Write(row); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to write CSV row", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to flush CSV", err)
	}

	return nil
}

func (a *app) summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Print the bar count, price range, volume and volatility of a price series",
		Flags: append(dataFlags(), formatFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			series, symbol, err := a.loadSeries(ctx, cmd)
			if err != nil {
				return err
			}

			summary := types.SummarizeSeries(series, marketdata.Timespan(cmd.String("interval")).BarsPerYear())

			return emit(cmd, a.stdout, summary, func() textTable {
				return textTable{rows: [][]string{
					{"Symbol", symbol},
					{"Bars", strconv.Itoa(summary.Bars)},
					{"Start", summary.Start.Format(time.RFC3339)},
					{"End", summary.End.Format(time.RFC3339)},
					{"Min price", fmt.Sprintf("%.4f", summary.MinPrice)},
					{"Max price", fmt.Sprintf("%.4f", summary.MaxPrice)},
					{"Average volume", fmt.Sprintf("%.2f", summary.AverageVolume)},
					{"Annualized volatility", fmt.Sprintf("%.4f", summary.AnnualizedVolatility)},
				}}
			})
		},
	}
}
