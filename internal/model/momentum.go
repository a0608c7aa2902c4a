package model

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	MomentumModelName       = "momentum"
	DefaultMomentumLookback = 60

	momentumWeight      = 0.6
	meanReversionWeight = 0.4
	meanReversionWindow = 20
)

// MomentumPredictor scores the window as
//
//	0.6 * (close[last] - close[first]) / close[first] - 0.4 * (close[last] - sma20) / sma20
//
// It needs no training and is deterministic, so it doubles as the reference model.
type MomentumPredictor struct {
	lookback int
}

// NewMomentumPredictor creates a predictor over lookback bars. The lookback is
// raised to the mean reversion window when shorter.
func NewMomentumPredictor(lookback int) *MomentumPredictor {
	if lookback < meanReversionWindow {
		lookback = meanReversionWindow
	}

	return &MomentumPredictor{lookback: lookback}
}

func (m *MomentumPredictor) LookbackWindow() int {
	return m.lookback
}

func (m *MomentumPredictor) Predict(ctx context.Context, window types.PriceSeries) (float64, error) {
	if err := errors.FromContext(ctx, "prediction cancelled"); err != nil {
		return 0, err
	}

	if len(window) != m.lookback {
		return 0, errors.Newf(errors.ErrCodeModelPredictionFailed,
			"momentum model expects %d bars, got %d", m.lookback, len(window))
	}

	first := window[0].Close
	last := window[len(window)-1].Close

	var sum float64
	for _, bar := range window[len(window)-meanReversionWindow:] {
		sum += bar.Close
	}

	mean := sum / meanReversionWindow

	momentum := (last - first) / first
	reversion := (last - mean) / mean

	return momentumWeight*momentum - meanReversionWeight*reversion, nil
}
