package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Series is an indicator output aligned with its input. Entries are None
// until the lookback window of the indicator is satisfied.
type Series []optional.Option[float64]

func undefinedSeries(n int) Series {
	series := make(Series, n)
	for i := range series {
		series[i] = optional.None[float64]()
	}

	return series
}

// At returns the value at i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || s[i].IsNone() {
		return 0, false
	}

	return s[i].Unwrap(), true
}

// FirstDefined returns the index of the first defined value, or -1.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.IsSome() {
			return i
		}
	}

	return -1
}

// Defined counts the defined values.
func (s Series) Defined() int {
	count := 0

	for _, v := range s {
		if v.IsSome() {
			count++
		}
	}

	return count
}

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, period)
	}

	return nil
}
