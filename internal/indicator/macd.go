package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACDResult holds the three MACD series.
type MACDResult struct {
	Line      Series
	Signal    Series
	Histogram Series
}

// MACD computes EMA(fast) - EMA(slow), its EMA over signalPeriod, and the
// difference of the two.
func MACD(values []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	if err := validatePeriod("fast period", fast); err != nil {
		return MACDResult{}, err
	}

	if err := validatePeriod("slow period", slow); err != nil {
		return MACDResult{}, err
	}

	if err := validatePeriod("signal period", signalPeriod); err != nil {
		return MACDResult{}, err
	}

	if fast >= slow {
		return MACDResult{}, errors.Newf(errors.ErrCodeInvalidPeriod,
			"fast period (%d) must be shorter than slow period (%d)", fast, slow)
	}

	n := len(values)
	result := MACDResult{
		Line:      undefinedSeries(n),
		Signal:    undefinedSeries(n),
		Histogram: undefinedSeries(n),
	}

	if slow >= n {
		return result, nil
	}

	fastEMA, _ := EMA(values, fast)
	slowEMA, _ := EMA(values, slow)

	line := make([]float64, n)
	for i := slow - 1; i < n; i++ {
		f, _ := fastEMA.At(i)
		s, _ := slowEMA.At(i)
		line[i] = f - s
		result.Line[i] = optional.Some(line[i])
	}

	emaOver(line, signalPeriod, slow-1, result.Signal)

	for i := range values {
		l, okLine := result.Line.At(i)
		s, okSignal := result.Signal.At(i)

		if okLine && okSignal {
			result.Histogram[i] = optional.Some(l - s)
		}
	}

	return result, nil
}
