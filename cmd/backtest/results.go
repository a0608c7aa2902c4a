package main

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/export"
	"github.com/urfave/cli/v3"
)

const defaultStorePath = "results.duckdb"

func (a *app) resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "Inspect the results saved in a DuckDB store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "store",
				Usage: "DuckDB file holding the results",
				Value: defaultStorePath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the saved results, oldest first",
				Flags: []cli.Flag{formatFlag()},
				Action: a.withStore(func(ctx context.Context, cmd *cli.Command, resultStore *store.DuckDBStore) error {
					summaries, err := resultStore.List(ctx)
					if err != nil {
						return err
					}

					return emit(cmd, a.stdout, summaries, func() textTable {
						return summaryTable(summaries)
					})
				}),
			},
			{
				Name:      "show",
				Usage:     "Print one result",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory receiving the trade ledger, equity curve and metrics",
					},
				},
				Action: a.withStore(func(ctx context.Context, cmd *cli.Command, resultStore *store.DuckDBStore) error {
					id, err := requireArg(cmd, "ID")
					if err != nil {
						return err
					}

					result, err := resultStore.Load(ctx, id)
					if err != nil {
						return err
					}

					if dir := cmd.String("output"); dir != "" {
						if err := export.WriteBundle(dir, result); err != nil {
							return err
						}
					}

					return emit(cmd, a.stdout, result, func() textTable {
						return resultTable(result)
					})
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete one result",
				ArgsUsage: "ID",
				Action: a.withStore(func(ctx context.Context, cmd *cli.Command, resultStore *store.DuckDBStore) error {
					id, err := requireArg(cmd, "ID")
					if err != nil {
						return err
					}

					if err := resultStore.Delete(ctx, id); err != nil {
						return err
					}

					_, err = fmt.Fprintf(a.stdout, "deleted %s\n", id)

					return err
				}),
			},
			{
				Name:      "export",
				Usage:     "Export the summaries of every result to a Parquet file",
				ArgsUsage: "PATH",
				Action: a.withStore(func(ctx context.Context, cmd *cli.Command, resultStore *store.DuckDBStore) error {
					path, err := requireArg(cmd, "PATH")
					if err != nil {
						return err
					}

					if err := resultStore.ExportParquet(ctx, path); err != nil {
						return err
					}

					_, err = fmt.Fprintln(a.stdout, path)

					return err
				}),
			},
		},
	}
}

// withStore opens the store named by the store flag around action.
func (a *app) withStore(action func(ctx context.Context, cmd *cli.Command, resultStore *store.DuckDBStore) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		resultStore, err := store.NewDuckDBStore(cmd.String("store"), a.logger)
		if err != nil {
			return err
		}
		defer resultStore.Close()

		return action(ctx, cmd, resultStore)
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.Newf(errors.ErrCodeMissingParameter, "expected exactly one argument: %s", name)
	}

	return cmd.Args().First(), nil
}
