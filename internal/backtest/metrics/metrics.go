// Package metrics computes the performance statistics of a finished run.
//
// Every function here is pure. Ratios that would divide by zero resolve to 0,
// except the profit factor which is None when there is no losing trade.
package metrics

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const DefaultBarsPerYear = 252

// Calculate derives the metrics of a run from its equity curve and trades.
// Trades with a pnl of exactly zero count as losing trades.
func Calculate(equity []types.EquityPoint, trades []types.Trade, initialCapital float64, barsPerYear int) types.Metrics {
	if barsPerYear <= 0 {
		barsPerYear = DefaultBarsPerYear
	}

	values := types.EquityValues(equity)

	finalValue := initialCapital
	if len(values) > 0 {
		finalValue = values[len(values)-1]
	}

	returns := Returns(values)

	m := types.Metrics{
		FinalValue:   finalValue,
		TotalReturn:  totalReturn(finalValue, initialCapital),
		CAGR:         CAGR(finalValue, initialCapital, len(values), barsPerYear),
		SharpeRatio:  SharpeRatio(returns, barsPerYear),
		MaxDrawdown:  MaxDrawdown(values),
		Volatility:   StdDev(returns) * math.Sqrt(float64(barsPerYear)),
		ProfitFactor: optional.None[float64](),
	}

	m.VaR95 = Percentile(returns, 5)
	m.VaR99 = Percentile(returns, 1)
	m.ExpectedShortfall95 = expectedShortfall(returns, m.VaR95)

	fillTradeStats(&m, trades)

	return m
}

func fillTradeStats(m *types.Metrics, trades []types.Trade) {
	var grossWin, grossLoss float64

	for _, trade := range trades {
		if trade.PnL() > 0 {
			m.WinningTrades++
			grossWin += trade.PnL()
		} else {
			m.LosingTrades++
			grossLoss += trade.PnL()
		}
	}

	m.TotalTrades = len(trades)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}

	if m.WinningTrades > 0 {
		m.AvgWin = grossWin / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}

	if grossLoss != 0 {
		m.ProfitFactor = optional.Some(grossWin / math.Abs(grossLoss))
	}
}

// Returns are the bar to bar returns of values. A return from a zero value is 0.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}

		returns[i-1] = values[i]/values[i-1] - 1
	}

	return returns
}

// SharpeRatio is mean(r) / stdev(r) * sqrt(barsPerYear), or 0 when stdev(r) is 0.
func SharpeRatio(returns []float64, barsPerYear int) float64 {
	std := StdDev(returns)
	if std == 0 || math.IsNaN(std) {
		return 0
	}

	return Mean(returns) / std * math.Sqrt(float64(barsPerYear))
}

// MaxDrawdown is the largest peak to trough decline as a fraction in [-1, 0].
func MaxDrawdown(values []float64) float64 {
	var peak, worst float64

	for i, value := range values {
		if i == 0 || value > peak {
			peak = value
		}

		if peak <= 0 {
			continue
		}

		if drawdown := (peak - value) / peak; drawdown > worst {
			worst = drawdown
		}
	}

	if worst > 1 {
		worst = 1
	}

	return -worst
}

// CAGR is (final/initial)^(barsPerYear/bars) - 1. A run that lost everything
// is -1. Short runs with a large move can overflow float64; such a CAGR is not
// representable and resolves to 0 like the other undefined ratios.
func CAGR(finalValue, initialCapital float64, bars, barsPerYear int) float64 {
	if bars == 0 || initialCapital <= 0 {
		return 0
	}

	growth := finalValue / initialCapital
	if growth <= 0 {
		return -1
	}

	cagr := math.Pow(growth, float64(barsPerYear)/float64(bars)) - 1
	if math.IsInf(cagr, 0) || math.IsNaN(cagr) {
		return 0
	}

	return cagr
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// StdDev is the sample standard deviation. Fewer than two values give 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)

	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

// Percentile interpolates linearly between the closest ranks. p is in [0, 100].
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

func expectedShortfall(returns []float64, threshold float64) float64 {
	var tail []float64

	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}

	return Mean(tail)
}

func totalReturn(finalValue, initialCapital float64) float64 {
	if initialCapital == 0 {
		return 0
	}

	return finalValue/initialCapital - 1
}
