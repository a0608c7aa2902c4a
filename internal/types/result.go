package types

import (
	"encoding/json"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BacktestResult is the output of one completed run.
type BacktestResult struct {
	StrategyID     string        `yaml:"strategy_id" json:"strategy_id"`
	Strategy       StrategyInfo  `yaml:"strategy" json:"strategy"`
	Symbol         string        `yaml:"symbol" json:"symbol"`
	InitialCapital float64       `yaml:"initial_capital" json:"initial_capital"`
	CommissionRate float64       `yaml:"commission_rate" json:"commission_rate"`
	EquitySeries   []EquityPoint `yaml:"equity_series" json:"equity_series"`
	Trades         []Trade       `yaml:"trades" json:"trades"`
	Metrics        Metrics       `yaml:"metrics" json:"metrics"`
	Logs           []LogEntry    `yaml:"logs" json:"logs"`
	EngineVersion  string        `yaml:"engine_version" json:"engine_version"`
}

// RunDiagnostics is the state a run had reached when it was interrupted.
// It is never a usable result.
type RunDiagnostics struct {
	BarsProcessed int           `yaml:"bars_processed" json:"bars_processed"`
	EquitySeries  []EquityPoint `yaml:"equity_series" json:"equity_series"`
	Trades        []Trade       `yaml:"trades" json:"trades"`
}

// InterruptedError is returned when a run is cancelled or times out between bars.
type InterruptedError struct {
	Err         *errors.Error
	Diagnostics RunDiagnostics
}

func (e *InterruptedError) Error() string {
	return e.Err.Error()
}

func (e *InterruptedError) Unwrap() error {
	return e.Err
}

type RunStatus string

const (
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusTimedOut  RunStatus = "timed_out"
)

// RunOutcome is one entry of a comparison. Result is set only on success.
type RunOutcome struct {
	StrategyID  string
	Status      RunStatus
	Result      optional.Option[BacktestResult]
	ErrorKind   errors.ErrorKind
	Reason      string
	Diagnostics optional.Option[RunDiagnostics]
}

// NewSuccessOutcome wraps a completed result.
func NewSuccessOutcome(result BacktestResult) RunOutcome {
	return RunOutcome{
		StrategyID:  result.StrategyID,
		Status:      RunStatusSuccess,
		Result:      optional.Some(result),
		Diagnostics: optional.None[RunDiagnostics](),
	}
}

// NewFailureOutcome classifies err into a failed, cancelled or timed out outcome.
func NewFailureOutcome(strategyID string, err error) RunOutcome {
	outcome := RunOutcome{
		StrategyID:  strategyID,
		Status:      RunStatusFailed,
		Result:      optional.None[BacktestResult](),
		ErrorKind:   errors.KindOf(err),
		Reason:      err.Error(),
		Diagnostics: optional.None[RunDiagnostics](),
	}

	switch outcome.ErrorKind {
	case errors.KindCancelled:
		outcome.Status = RunStatusCancelled
	case errors.KindTimedOut:
		outcome.Status = RunStatusTimedOut
	}

	var interrupted *InterruptedError
	if errors.As(err, &interrupted) {
		outcome.Diagnostics = optional.Some(interrupted.Diagnostics)
	}

	return outcome
}

// Succeeded reports whether the outcome carries a result.
func (o RunOutcome) Succeeded() bool {
	return o.Status == RunStatusSuccess && o.Result.IsSome()
}

type runOutcomeRecord struct {
	StrategyID  string           `json:"strategy_id"`
	Status      RunStatus        `json:"status"`
	Result      *BacktestResult  `json:"result,omitempty"`
	ErrorKind   errors.ErrorKind `json:"error_kind,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Diagnostics *RunDiagnostics  `json:"diagnostics,omitempty"`
}

func (o RunOutcome) MarshalJSON() ([]byte, error) {
	record := runOutcomeRecord{
		StrategyID: o.StrategyID,
		Status:     o.Status,
		ErrorKind:  o.ErrorKind,
		Reason:     o.Reason,
	}

	if o.Result.IsSome() {
		result := o.Result.Unwrap()
		record.Result = &result
	}

	if o.Diagnostics.IsSome() {
		diagnostics := o.Diagnostics.Unwrap()
		record.Diagnostics = &diagnostics
	}

	return json.Marshal(record)
}
