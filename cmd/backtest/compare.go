package main

import (
	"context"
	"os"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/export"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func (a *app) compareCommand() *cli.Command {
	flags := append(dataFlags(), runFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:     "strategies",
			Aliases:  []string{"f"},
			Usage:    "YAML file with the list of strategy configs to compare",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Do not draw a progress bar",
		},
	)

	return &cli.Command{
		Name:   "compare",
		Usage:  "Run several strategies over the same price series",
		Flags:  flags,
		Action: a.compare,
	}
}

func (a *app) compare(ctx context.Context, cmd *cli.Command) error {
	configs, err := loadStrategyConfigs(cmd.String("strategies"))
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

	var callbacks engine.LifecycleCallbacks

	if !cmd.Bool("no-progress") {
		bar := newProgressBar(a.stderr, len(configs), "Running strategies")
		defer bar.Finish()

		onRunEnd := engine.OnRunEndCallback(func(index int, outcome types.RunOutcome) {
			bar.Describe(outcome.StrategyID)
			_ = bar.Add(1)
		})
		callbacks.OnRunEnd = &onRunEnd
	}

	outcomes, err := e.Compare(ctx, series, configs, a.runParams(cmd, symbol), callbacks)
	if err != nil {
		return err
	}

	timestamp := time.Now().UTC()

	if dir := cmd.String("output"); dir != "" {
		if err := export.WriteComparison(dir, outcomes, series, symbol, timestamp); err != nil {
			return err
		}
	}

	if path := cmd.String("store"); path != "" {
		var results []types.BacktestResult

		for _, outcome := range outcomes {
			if result, err := outcome.Result.Take(); err == nil {
				results = append(results, result)
			}
		}

		if err := a.saveResults(ctx, path, results); err != nil {
			return err
		}
	}

	summaries := export.Summaries(outcomes, series, symbol, timestamp)

	return emit(cmd, a.stdout, summaries, func() textTable {
		return outcomeTable(outcomes)
	})
}

// loadStrategyConfigs reads a YAML list of strategy configs, either at the
// top level or under a strategies key.
func loadStrategyConfigs(path string) ([]types.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read %s", path)
	}

	var configs []types.StrategyConfig
	if listErr := yaml.Unmarshal(data, &configs); listErr != nil {
		var document struct {
			Strategies []types.StrategyConfig `yaml:"strategies"`
		}

		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse %s", path)
		}

		configs = document.Strategies
	}

	if len(configs) == 0 {
		return nil, errors.Newf(errors.ErrCodeMissingParameter, "%s lists no strategies", path)
	}

	return configs, nil
}
