package types

import "github.com/rxtech-lab/argo-backtest/pkg/errors"

type SignalType string

const (
	// SignalTypeLongEntry opens a long position on the next bar.
	SignalTypeLongEntry SignalType = "LONG_ENTRY"
	// SignalTypeShortEntry opens a short position on the next bar.
	SignalTypeShortEntry SignalType = "SHORT_ENTRY"
	// SignalTypeExit closes the open position on the next bar.
	SignalTypeExit SignalType = "EXIT"
	// SignalTypeHold leaves the position unchanged.
	SignalTypeHold SignalType = "HOLD"
)

// IsEntry reports whether the signal opens a position.
func (s SignalType) IsEntry() bool {
	return s == SignalTypeLongEntry || s == SignalTypeShortEntry
}

// Side returns the position side an entry signal opens, FLAT for anything else.
func (s SignalType) Side() PositionSide {
	switch s {
	case SignalTypeLongEntry:
		return PositionSideLong
	case SignalTypeShortEntry:
		return PositionSideShort
	default:
		return PositionSideFlat
	}
}

func (s SignalType) valid() bool {
	switch s {
	case SignalTypeLongEntry, SignalTypeShortEntry, SignalTypeExit, SignalTypeHold:
		return true
	default:
		return false
	}
}

// SignalSeries holds one signal per bar, aligned with the price series it was generated from.
type SignalSeries []SignalType

// NewHoldSeries returns a series of n HOLD signals.
func NewHoldSeries(n int) SignalSeries {
	series := make(SignalSeries, n)
	for i := range series {
		series[i] = SignalTypeHold
	}

	return series
}

// Validate checks that the series is aligned with a price series of length bars
// and only holds known signals.
func (s SignalSeries) Validate(bars int) error {
	if len(s) != bars {
		return errors.Newf(errors.ErrCodeStrategyRuntimeError,
			"signal series has %d entries, expected %d", len(s), bars)
	}

	for i, signal := range s {
		if !signal.valid() {
			return errors.Newf(errors.ErrCodeStrategyRuntimeError, "unknown signal %q at bar %d", signal, i)
		}
	}

	return nil
}

// Count returns how many times the signal appears in the series.
func (s SignalSeries) Count(signal SignalType) int {
	count := 0

	for _, v := range s {
		if v == signal {
			count++
		}
	}

	return count
}
