package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/model"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries the state shared by every subcommand. It is filled by the
// root Before hook.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	logger   *logger.Logger
	config   engine.BacktestEngineV1Config
	registry *strategy.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{
		stdout:   stdout,
		stderr:   stderr,
		logger:   logger.NewNopLogger(),
		config:   engine.EmptyConfig(),
		registry: strategy.NewDefaultRegistry(model.NewDefaultRegistry()),
	}

	return &cli.Command{
		Name:      "backtest",
		Usage:     "Run and compare trading strategies over historical price series",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before anything else",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Engine configuration YAML file",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.setup(cmd)
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			_ = a.logger.Sync()

			return nil
		},
		Commands: []*cli.Command{
			a.runCommand(),
			a.compareCommand(),
			a.strategiesCommand(),
			a.indicatorCommand(),
			a.summaryCommand(),
			a.downloadCommand(),
			a.resultsCommand(),
			a.serveCommand(),
			a.initCommand(),
		},
	}
}

// setup loads the environment file, then builds the logger and the engine
// configuration.
func (a *app) setup(cmd *cli.Command) error {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid log level", err)
	}

	log, err := logger.NewConsoleLogger(level)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create logger", err)
	}

	a.logger = log

	if envFile := cmd.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load %s", envFile)
			}

			a.logger.Debug("No environment file found", zap.String("path", envFile))
		}
	}

	if path := cmd.String("config"); path != "" {
		config, err := engine.LoadConfig(path)
		if err != nil {
			return err
		}

		a.config = config
	}

	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindConfiguration:
		return 2
	case errors.KindData, errors.KindEmptyRange, errors.KindUnknownTicker:
		return 3
	case errors.KindCancelled, errors.KindTimedOut:
		return 130
	default:
		return 1
	}
}
