package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaFileName     = "backtest-engine-v1-config.json"
	configFileName     = "backtest-engine-v1-config.yaml"
	strategiesFileName = "strategies.yaml"
)

// sampleConfig is the YAML form of a default engine configuration.
type sampleConfig struct {
	Symbol         string                `yaml:"symbol"`
	InitialCapital float64               `yaml:"initial_capital"`
	CommissionRate float64               `yaml:"commission_rate"`
	Broker         commission_fee.Broker `yaml:"broker"`
	BarsPerYear    int                   `yaml:"bars_per_year"`
	MaxConcurrency int                   `yaml:"max_concurrency"`
	RunTimeout     time.Duration         `yaml:"run_timeout"`
}

func (a *app) initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write the engine config schema, a sample config and a sample strategy list",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory receiving the files",
				Value: "./config",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.writeInitFiles(cmd.String("dir"))
		},
	}
}

// writeInitFiles always rewrites the schema. Existing samples are kept.
func (a *app) writeInitFiles(dir string) error {
	config := engine.EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to generate schema", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create %s", dir)
	}

	schemaPath := filepath.Join(dir, schemaFileName)
	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", schemaPath)
	}

	fmt.Fprintf(a.stdout, "schema written to %s\n", schemaPath)

	sample := sampleConfig{
		Symbol:         "SPY",
		InitialCapital: config.InitialCapital,
		CommissionRate: config.CommissionRate,
		Broker:         config.Broker,
		BarsPerYear:    config.BarsPerYear,
		MaxConcurrency: config.MaxConcurrency,
		RunTimeout:     config.RunTimeout,
	}

	if err := a.writeSample(filepath.Join(dir, configFileName), "# yaml-language-server: $schema="+schemaFileName+"\n", sample); err != nil {
		return err
	}

	return a.writeSample(filepath.Join(dir, strategiesFileName), "", a.sampleStrategies())
}

// sampleStrategies lists every single strategy variant with its defaults.
// Composite variants need children and are left out.
func (a *app) sampleStrategies() []types.StrategyConfig {
	var configs []types.StrategyConfig

	for _, entry := range a.registry.List() {
		if entry.Type == types.StrategyTypeComposite {
			continue
		}

		configs = append(configs, types.StrategyConfig{
			ID:         entry.Name,
			Name:       entry.Name,
			Parameters: entry.Defaults,
		})
	}

	return configs
}

func (a *app) writeSample(path, header string, v any) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to marshal %s", path)
	}

	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", path)
	}

	fmt.Fprintf(a.stdout, "sample written to %s\n", path)

	return nil
}
