package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/export"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

const formatText = "text"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format (text, json, yaml)",
		Value: formatText,
	}
}

// outputFormat returns the export format of the format flag, or ok=false
// for the text tables.
func outputFormat(cmd *cli.Command) (format export.Format, ok bool, err error) {
	value := cmd.String("format")
	if value == "" || strings.EqualFold(value, formatText) {
		return "", false, nil
	}

	format, err = export.ParseFormat(value)
	if err != nil {
		return "", false, err
	}

	return format, true, nil
}

// textTable is the plain text form of a command's output. A nil header
// renders a key/value listing.
type textTable struct {
	headers []string
	rows    [][]string
}

// emit writes v in the requested format, or renders the table built by text.
func emit(cmd *cli.Command, w io.Writer, v any, text func() textTable) error {
	format, encoded, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	if encoded {
		return export.Encode(w, v, format)
	}

	return renderTable(w, text())
}

// renderTable draws t without borders so the output stays easy to grep.
// Styles only apply when w is a terminal.
func renderTable(w io.Writer, t textTable) error {
	renderer := lipgloss.NewRenderer(w)
	headerStyle := renderer.NewStyle().Bold(true).PaddingRight(2)
	cellStyle := renderer.NewStyle().PaddingRight(2)

	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		}).
		Headers(t.headers...).
		Rows(t.rows...)

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write output", err)
	}

	return nil
}

func resultTable(result types.BacktestResult) textTable {
	rows := [][]string{
		{"Strategy", fmt.Sprintf("%s (%s)", result.StrategyID, result.Strategy.Name)},
		{"Symbol", result.Symbol},
		{"Initial capital", fmt.Sprintf("%.2f", result.InitialCapital)},
		{"Bars", strconv.Itoa(len(result.EquitySeries))},
	}

	values := export.MetricsMap(result.Metrics)
	for _, key := range export.MetricKeys {
		rows = append(rows, []string{key, formatValue(values[key])})
	}

	return textTable{rows: rows}
}

func outcomeTable(outcomes []types.RunOutcome) textTable {
	t := textTable{headers: []string{"ID", "STATUS", "TOTAL_RETURN", "SHARPE", "MAX_DRAWDOWN", "TRADES", "FINAL_VALUE", "REASON"}}

	for _, outcome := range outcomes {
		if result, err := outcome.Result.Take(); err == nil {
			m := result.Metrics
			t.rows = append(t.rows, []string{
				outcome.StrategyID,
				string(outcome.Status),
				fmt.Sprintf("%.4f", m.TotalReturn),
				fmt.Sprintf("%.4f", m.SharpeRatio),
				fmt.Sprintf("%.4f", m.MaxDrawdown),
				strconv.Itoa(m.TotalTrades),
				fmt.Sprintf("%.2f", m.FinalValue),
				"",
			})

			continue
		}

		t.rows = append(t.rows, []string{
			outcome.StrategyID, string(outcome.Status), "-", "-", "-", "-", "-",
			fmt.Sprintf("%s: %s", outcome.ErrorKind, outcome.Reason),
		})
	}

	return t
}

func summaryTable(summaries []types.ResultSummary) textTable {
	t := textTable{headers: []string{"ID", "STRATEGY", "SYMBOL", "STATUS", "TOTAL_RETURN", "SHARPE", "TRADES", "TIMESTAMP"}}

	for _, s := range summaries {
		t.rows = append(t.rows, []string{
			s.ID,
			s.StrategyID,
			s.Symbol,
			string(s.Status),
			fmt.Sprintf("%.4f", s.Metrics.TotalReturn),
			fmt.Sprintf("%.4f", s.Metrics.SharpeRatio),
			strconv.Itoa(s.Metrics.TotalTrades),
			s.Timestamp.Format(time.DateTime),
		})
	}

	return t
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprint(v)
	}
}

// newProgressBar draws on w, which is stderr outside tests.
func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
