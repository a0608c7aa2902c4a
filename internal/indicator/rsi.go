package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// RSI computes the relative strength index with Wilder smoothing.
// The first value is at index period. Values are clamped to [0, 100].
func RSI(values []float64, period int) (Series, error) {
	if err := validatePeriod("period", period); err != nil {
		return nil, err
	}

	result := undefinedSeries(len(values))
	if period >= len(values) {
		return result, nil
	}

	var avgGain, avgLoss float64

	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = optional.Some(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := math.Max(change, 0), math.Max(-change, 0)

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = optional.Some(rsiValue(avgGain, avgLoss))
	}

	return result, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}

	rsi := 100 - 100/(1+avgGain/avgLoss)

	return math.Min(100, math.Max(0, rsi))
}
