// Package strategy turns a price series into a signal series.
//
// Every variant emits signals without knowing the simulated position: the
// simulator is responsible for ignoring entries in the direction of an
// already open position. Variants only ever read bars 0..i when deciding the
// signal of bar i.
package strategy

import (
	"bytes"
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy generates one signal per bar for a price series.
type Strategy interface {
	// Name returns the registry name of the variant.
	Name() string
	// GenerateSignals returns a series aligned with bars.
	GenerateSignals(ctx context.Context, bars types.PriceSeries) (types.SignalSeries, error)
	// Describe returns the name, type and effective parameters.
	Describe() types.StrategyInfo
	// Validate checks the configured parameters.
	Validate() error
}

// decodeParams overlays raw onto target. Unknown parameter names are rejected.
func decodeParams(raw map[string]any, target any) error {
	if len(raw) == 0 {
		return nil
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode strategy parameters", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(target); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to decode strategy parameters", err)
	}

	return nil
}

func validateParams(params any) error {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid strategy parameters", err)
	}

	return nil
}

// paramsToMap converts a params struct into its map form using the yaml names.
func paramsToMap(params any) map[string]any {
	data, err := yaml.Marshal(params)
	if err != nil {
		return nil
	}

	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil
	}

	return out
}

// bearishSignal is EXIT for long only strategies and SHORT_ENTRY otherwise.
func bearishSignal(allowShort bool) types.SignalType {
	if allowShort {
		return types.SignalTypeShortEntry
	}

	return types.SignalTypeExit
}

// regime is the relation of a fast line to a slow line on one bar.
type regime int

const (
	regimeUndefined regime = iota
	regimeBelow
	regimeEqual
	regimeAbove
)

func regimeOf(fast, slow float64, defined bool) regime {
	switch {
	case !defined:
		return regimeUndefined
	case fast > slow:
		return regimeAbove
	case fast < slow:
		return regimeBelow
	default:
		return regimeEqual
	}
}

// crossoverSignals emits a bullish entry when the regime turns above and a
// bearish signal when it turns below. Leaving the undefined warm-up counts as
// a change, so the first bar with both lines defined can signal.
func crossoverSignals(regimes []regime, allowShort bool) types.SignalSeries {
	signals := types.NewHoldSeries(len(regimes))

	for i, current := range regimes {
		previous := regimeUndefined
		if i > 0 {
			previous = regimes[i-1]
		}

		if current == previous {
			continue
		}

		switch current {
		case regimeAbove:
			signals[i] = types.SignalTypeLongEntry
		case regimeBelow:
			signals[i] = bearishSignal(allowShort)
		}
	}

	return signals
}

// bandSignals emits a bullish entry when price is at or below the lower band
// and a bearish signal at or above the upper band. Zero width bands hold.
func bandSignals(closes []float64, upper, lower func(i int) (float64, bool), allowShort bool) types.SignalSeries {
	signals := types.NewHoldSeries(len(closes))

	for i, price := range closes {
		up, okUp := upper(i)
		low, okLow := lower(i)

		if !okUp || !okLow || up <= low {
			continue
		}

		switch {
		case price <= low:
			signals[i] = types.SignalTypeLongEntry
		case price >= up:
			signals[i] = bearishSignal(allowShort)
		}
	}

	return signals
}
