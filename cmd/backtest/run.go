package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/export"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runFlags are shared by run and compare.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Initial capital, overrides the configuration",
		},
		&cli.FloatFlag{
			Name:  "commission",
			Usage: "Commission rate per fill, overrides the configuration",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory receiving the trade ledger, equity curve and metrics",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "DuckDB file the results are saved to",
		},
		formatFlag(),
	}
}

func (a *app) runCommand() *cli.Command {
	flags := append(dataFlags(), runFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:     "strategy",
			Aliases:  []string{"s"},
			Usage:    "Strategy variant, see the strategies command",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "params",
			Usage: "Strategy parameters as a JSON object",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Identifier of the run, defaults to the strategy name",
		},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Run one strategy over a price series",
		Flags:  flags,
		Action: a.run,
	}
}

func (a *app) run(ctx context.Context, cmd *cli.Command) error {
	config, err := strategyConfig(cmd.String("id"), cmd.String("strategy"), cmd.String("params"))
	if err != nil {
		return err
	}

	series, symbol, err := a.loadSeries(ctx, cmd)
	if err != nil {
		return err
	}

	e, err := engine_v1.NewBacktestEngineV1(a.config, a.registry, a.logger)
	if err != nil {
		return err
	}

	result, err := e.RunBacktest(ctx, series, config, a.runParams(cmd, symbol))
	if err != nil {
		return err
	}

	if dir := cmd.String("output"); dir != "" {
		if err := export.WriteBundle(dir, result); err != nil {
			return err
		}
	}

	if path := cmd.String("store"); path != "" {
		if err := a.saveResults(ctx, path, []types.BacktestResult{result}); err != nil {
			return err
		}
	}

	return emit(cmd, a.stdout, result, func() textTable {
		return resultTable(result)
	})
}

// strategyConfig builds a config from the command line. params is a JSON
// object and may be empty.
func strategyConfig(id, name, params string) (types.StrategyConfig, error) {
	config := types.StrategyConfig{ID: id, Name: name}

	if params != "" {
		if err := json.Unmarshal([]byte(params), &config.Parameters); err != nil {
			return types.StrategyConfig{}, errors.Wrap(errors.ErrCodeInvalidParameter, "params must be a JSON object", err)
		}
	}

	return config, nil
}

func (a *app) runParams(cmd *cli.Command, symbol string) engine.RunParams {
	params := a.config.RunParams()
	params.Symbol = symbol

	if cmd.IsSet("capital") {
		params.InitialCapital = cmd.Float("capital")
	}

	if cmd.IsSet("commission") {
		params.CommissionRate = cmd.Float("commission")
	}

	return params
}

// saveResults stores results in the DuckDB file at path and reports the ids
// on stderr.
func (a *app) saveResults(ctx context.Context, path string, results []types.BacktestResult) error {
	resultStore, err := store.NewDuckDBStore(path, a.logger)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	for _, result := range results {
		id, err := resultStore.Save(ctx, result)
		if err != nil {
			return err
		}

		a.logger.Info("Saved result", zap.String("id", id), zap.String("strategy", result.StrategyID))
		fmt.Fprintf(a.stderr, "saved %s as %s\n", result.StrategyID, id)
	}

	return nil
}
