package store

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ResultStore persists completed backtest results.
type ResultStore interface {
	// Save stores result and returns the id it was stored under.
	Save(ctx context.Context, result types.BacktestResult) (string, error)
	// Load returns the result stored under id.
	Load(ctx context.Context, id string) (types.BacktestResult, error)
	// List returns a summary of every stored result, oldest first.
	List(ctx context.Context) ([]types.ResultSummary, error)
	// Delete removes the result stored under id.
	Delete(ctx context.Context, id string) error
	Close() error
}
