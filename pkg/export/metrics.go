package export

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MetricsMap returns the key-value form of m. Keys are the metric names in
// snake case. profit_factor is nil when it is undefined.
func MetricsMap(m types.Metrics) map[string]any {
	values := map[string]any{
		"total_return":          m.TotalReturn,
		"sharpe_ratio":          m.SharpeRatio,
		"max_drawdown":          m.MaxDrawdown,
		"win_rate":              m.WinRate,
		"total_trades":          m.TotalTrades,
		"winning_trades":        m.WinningTrades,
		"losing_trades":         m.LosingTrades,
		"avg_win":               m.AvgWin,
		"avg_loss":              m.AvgLoss,
		"profit_factor":         nil,
		"final_value":           m.FinalValue,
		"cagr":                  m.CAGR,
		"volatility":            m.Volatility,
		"var_95":                m.VaR95,
		"var_99":                m.VaR99,
		"expected_shortfall_95": m.ExpectedShortfall95,
	}

	if m.ProfitFactor.IsSome() {
		values["profit_factor"] = m.ProfitFactor.Unwrap()
	}

	return values
}

// MetricKeys lists the keys of MetricsMap in display order.
var MetricKeys = []string{
	"total_return",
	"cagr",
	"sharpe_ratio",
	"max_drawdown",
	"volatility",
	"var_95",
	"var_99",
	"expected_shortfall_95",
	"total_trades",
	"winning_trades",
	"losing_trades",
	"win_rate",
	"avg_win",
	"avg_loss",
	"profit_factor",
	"final_value",
}
