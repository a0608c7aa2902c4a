package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for comparison runs.
// Callbacks are invoked from the worker goroutines and must be safe for concurrent use.

// OnRunStartCallback is called when a run begins. index is the position of the
// strategy config in the comparison input.
type OnRunStartCallback func(index int, strategyID string, totalRuns int)

// OnRunEndCallback is called when a run finishes, whatever its outcome.
type OnRunEndCallback func(index int, outcome types.RunOutcome)

// OnCompareEndCallback is called once every run of a comparison has finished.
type OnCompareEndCallback func(outcomes []types.RunOutcome)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart   *OnRunStartCallback
	OnRunEnd     *OnRunEndCallback
	OnCompareEnd *OnCompareEndCallback
}

// RunParams are the capital and commission parameters shared by every run of a call.
type RunParams struct {
	// Symbol labels the instrument in results and logs.
	Symbol         string  `yaml:"symbol" json:"symbol"`
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// CommissionRate is the fraction of the traded notional charged per fill.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`
}

type Engine interface {
	// RunBacktest runs one strategy over series. Configuration and data errors
	// are returned before any bar is simulated.
	RunBacktest(ctx context.Context, series types.PriceSeries, config types.StrategyConfig, params RunParams) (types.BacktestResult, error)
	// Compare runs every config independently over the same series. The
	// returned error is set only when the shared inputs are invalid; failures
	// of single runs are reported in their outcome, in input order.
	Compare(ctx context.Context, series types.PriceSeries, configs []types.StrategyConfig, params RunParams, callbacks LifecycleCallbacks) ([]types.RunOutcome, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
