package indicator

import (
	"github.com/moznion/go-optional"
)

// EMA computes the exponential moving average of values over period.
// The first value is the simple average of the first window and
// alpha = 2 / (period + 1) afterwards.
func EMA(values []float64, period int) (Series, error) {
	if err := validatePeriod("period", period); err != nil {
		return nil, err
	}

	result := undefinedSeries(len(values))
	if period >= len(values) {
		return result, nil
	}

	emaOver(values, period, 0, result)

	return result, nil
}

// emaOver writes the EMA of values[start:] into result at the same indexes.
// It leaves result untouched when fewer than period values are available.
func emaOver(values []float64, period, start int, result Series) {
	if len(values)-start < period {
		return
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}

	ema := seed / float64(period)
	result[start+period-1] = optional.Some(ema)

	alpha := 2.0 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		result[i] = optional.Some(ema)
	}
}
