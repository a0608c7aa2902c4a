package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ResultSummary is the per run entry written to stats.yaml.
type ResultSummary struct {
	// ID is the identifier the result was stored under, if any.
	ID         string        `yaml:"id,omitempty" json:"id,omitempty"`
	Timestamp  time.Time     `yaml:"timestamp" json:"timestamp"`
	StrategyID string        `yaml:"strategy_id" json:"strategy_id"`
	Strategy   StrategyInfo  `yaml:"strategy" json:"strategy"`
	Symbol     string        `yaml:"symbol" json:"symbol"`
	Status     RunStatus     `yaml:"status" json:"status"`
	Reason     string        `yaml:"reason,omitempty" json:"reason,omitempty"`
	Metrics    MetricsRecord `yaml:"metrics" json:"metrics"`
	// TotalFees is the commission paid over all trades.
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
	// BuyAndHoldReturn is the return of holding from the first close to the last close.
	BuyAndHoldReturn float64 `yaml:"buy_and_hold_return" json:"buy_and_hold_return"`
}

// NewResultSummary summarizes a completed result replayed over series.
func NewResultSummary(result BacktestResult, series PriceSeries, timestamp time.Time) ResultSummary {
	var fees float64
	for _, trade := range result.Trades {
		fees += trade.TotalCommission()
	}

	var buyAndHold float64
	if len(series) > 0 && series[0].Close > 0 {
		buyAndHold = series[len(series)-1].Close/series[0].Close - 1
	}

	return ResultSummary{
		Timestamp:        timestamp,
		StrategyID:       result.StrategyID,
		Strategy:         result.Strategy,
		Symbol:           result.Symbol,
		Status:           RunStatusSuccess,
		Metrics:          result.Metrics.Record(),
		TotalFees:        fees,
		BuyAndHoldReturn: buyAndHold,
	}
}

func WriteResultSummaries(path string, summaries []ResultSummary) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal result summaries to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result summaries to file: %w", err)
	}

	return nil
}

// NewFailedSummary records a run that did not produce a result.
func NewFailedSummary(outcome RunOutcome, symbol string, timestamp time.Time) ResultSummary {
	return ResultSummary{
		Timestamp:  timestamp,
		StrategyID: outcome.StrategyID,
		Symbol:     symbol,
		Status:     outcome.Status,
		Reason:     outcome.Reason,
	}
}
