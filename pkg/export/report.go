// Package export writes backtest results in the formats consumed downstream:
// a CSV trade ledger, a CSV equity curve, a key-value metrics map and the
// whole result as JSON or YAML.
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml.
func ParseFormat(value string) (Format, error) {
	switch value {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported export format %q", value)
	}
}

// Encode writes v to w in format. JSON output is indented.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(v); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode json", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		if err := encoder.Encode(v); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode yaml", err)
		}

		if err := encoder.Close(); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode yaml", err)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported export format %q", format)
	}

	return nil
}

// Summaries turns the outcomes of a comparison into one summary per run.
// Failed runs keep their status and reason.
func Summaries(outcomes []types.RunOutcome, series types.PriceSeries, symbol string, timestamp time.Time) []types.ResultSummary {
	summaries := make([]types.ResultSummary, 0, len(outcomes))

	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			summaries = append(summaries, types.NewResultSummary(outcome.Result.Unwrap(), series, timestamp))

			continue
		}

		summaries = append(summaries, types.NewFailedSummary(outcome, symbol, timestamp))
	}

	return summaries
}

// Bundle file names inside a result directory.
const (
	TradesFile  = "trades.csv"
	EquityFile  = "equity.csv"
	MetricsFile = "metrics.json"
	ResultFile  = "result.yaml"
	StatsFile   = "stats.yaml"
)

// WriteBundle writes the ledger, equity curve, metrics, run log and full
// result of one run into dir, creating it when needed.
func WriteBundle(dir string, result types.BacktestResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create result directory %s", dir)
	}

	writers := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{TradesFile, func(w io.Writer) error { return WriteTradeLedger(w, result.Trades) }},
		{EquityFile, func(w io.Writer) error { return WriteEquityCurve(w, result.EquitySeries) }},
		{MetricsFile, func(w io.Writer) error { return Encode(w, MetricsMap(result.Metrics), FormatJSON) }},
		{ResultFile, func(w io.Writer) error { return Encode(w, result, FormatYAML) }},
	}

	for _, entry := range writers {
		if err := writeFile(filepath.Join(dir, entry.name), entry.write); err != nil {
			return err
		}
	}

	return WriteRunLog(filepath.Join(dir, LogsFile), result.Logs)
}

// WriteComparison writes a bundle per successful run into dir/<strategy id>
// and the summaries of all runs into dir/stats.yaml.
func WriteComparison(dir string, outcomes []types.RunOutcome, series types.PriceSeries, symbol string, timestamp time.Time) error {
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			continue
		}

		if err := WriteBundle(filepath.Join(dir, outcome.StrategyID), outcome.Result.Unwrap()); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create result directory %s", dir)
	}

	if err := types.WriteResultSummaries(filepath.Join(dir, StatsFile), Summaries(outcomes, series, symbol, timestamp)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write comparison summary", err)
	}

	return nil
}

func writeFile(path string, write func(w io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create %s", path)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(errors.ErrCodeInternal, cerr, "failed to close %s", path)
		}
	}()

	return write(file)
}
