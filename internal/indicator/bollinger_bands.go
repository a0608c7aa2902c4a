package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Bands is a channel indicator output.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// BollingerBands computes the SMA of values with bands k population standard
// deviations above and below it.
func BollingerBands(values []float64, period int, k float64) (Bands, error) {
	if err := validatePeriod("period", period); err != nil {
		return Bands{}, err
	}

	if k <= 0 {
		return Bands{}, errors.Newf(errors.ErrCodeInvalidParameter, "standard deviation multiplier must be positive, got %v", k)
	}

	middle, err := SMA(values, period)
	if err != nil {
		return Bands{}, err
	}

	bands := Bands{
		Upper:  undefinedSeries(len(values)),
		Middle: middle,
		Lower:  undefinedSeries(len(values)),
	}

	for i := range values {
		mean, ok := middle.At(i)
		if !ok {
			continue
		}

		variance := 0.0
		for _, v := range values[i-period+1 : i+1] {
			variance += (v - mean) * (v - mean)
		}

		std := math.Sqrt(variance / float64(period))
		bands.Upper[i] = optional.Some(mean + k*std)
		bands.Lower[i] = optional.Some(mean - k*std)
	}

	return bands, nil
}
