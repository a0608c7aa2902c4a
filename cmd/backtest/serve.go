package main

import (
	"context"
	"io"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/api"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cli.Command {
	flags := append(sourceFlags(""),
		&cli.StringFlag{
			Name:  "address",
			Usage: "Address to listen on",
			Value: "127.0.0.1:8080",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "DuckDB file holding the results, in memory when empty",
		},
	)

	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve backtests and comparisons over HTTP",
		Flags:  flags,
		Action: a.serve,
	}
}

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	e, err := engine_v1.NewBacktestEngineV1(a.config, a.registry, a.logger)
	if err != nil {
		return err
	}

	resultStore, err := store.NewDuckDBStore(cmd.String("store"), a.logger)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	config := api.ServerConfig{
		Engine:   e,
		Registry: a.registry,
		Store:    resultStore,
		Defaults: a.config.RunParams(),
		Logger:   a.logger,
	}

	// Without a provider, requests must carry their bars inline.
	if cmd.String("provider") != "" {
		source, err := marketdata.NewSource(clientConfig(cmd), a.logger)
		if err != nil {
			return err
		}

		if closer, ok := source.(io.Closer); ok {
			defer closer.Close()
		}

		config.Source = source
	}

	server, err := api.NewServer(config)
	if err != nil {
		return err
	}

	if err := server.Start(cmd.String("address")); err != nil {
		return err
	}

	a.logger.Warn("Listening", zap.String("address", server.Address()))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
