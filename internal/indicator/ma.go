package indicator

import (
	"github.com/moznion/go-optional"
)

// SMA computes the simple moving average of values over period.
func SMA(values []float64, period int) (Series, error) {
	if err := validatePeriod("period", period); err != nil {
		return nil, err
	}

	result := undefinedSeries(len(values))
	if period >= len(values) {
		return result, nil
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			result[i] = optional.Some(sum / float64(period))
		}
	}

	return result, nil
}
