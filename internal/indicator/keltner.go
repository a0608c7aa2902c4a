package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// KeltnerChannel computes EMA(close) with bands multiplier ATRs above and below.
func KeltnerChannel(bars types.PriceSeries, period int, multiplier float64) (Bands, error) {
	if err := validatePeriod("period", period); err != nil {
		return Bands{}, err
	}

	if multiplier <= 0 {
		return Bands{}, errors.Newf(errors.ErrCodeInvalidParameter, "multiplier must be positive, got %v", multiplier)
	}

	middle, err := EMA(bars.Closes(), period)
	if err != nil {
		return Bands{}, err
	}

	atr, err := ATR(bars, period)
	if err != nil {
		return Bands{}, err
	}

	bands := Bands{
		Upper:  undefinedSeries(len(bars)),
		Middle: middle,
		Lower:  undefinedSeries(len(bars)),
	}

	for i := range bars {
		mid, okMid := middle.At(i)
		rng, okATR := atr.At(i)

		if okMid && okATR {
			bands.Upper[i] = optional.Some(mid + multiplier*rng)
			bands.Lower[i] = optional.Some(mid - multiplier*rng)
		}
	}

	return bands, nil
}
