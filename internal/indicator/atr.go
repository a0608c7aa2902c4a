package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ATR computes the average true range with Wilder smoothing. The first bar's
// true range is its high minus low.
func ATR(bars types.PriceSeries, period int) (Series, error) {
	if err := validatePeriod("period", period); err != nil {
		return nil, err
	}

	result := undefinedSeries(len(bars))
	if period >= len(bars) {
		return result, nil
	}

	trueRange := make([]float64, len(bars))
	for i, bar := range bars {
		trueRange[i] = bar.High - bar.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			trueRange[i] = math.Max(trueRange[i], math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
		}
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRange[i]
	}

	atr /= float64(period)
	result[period-1] = optional.Some(atr)

	for i := period; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRange[i]) / float64(period)
		result[i] = optional.Some(atr)
	}

	return result, nil
}
