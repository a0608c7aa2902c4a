package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/model"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const ModelName = "model"

type ModelParams struct {
	Model      string  `yaml:"model" json:"model" validate:"required" jsonschema:"title=Model,description=Name of a registered predictor,default=momentum"`
	Threshold  float64 `yaml:"threshold" json:"threshold" validate:"gte=0" jsonschema:"title=Threshold,description=Minimum absolute forecast that triggers a signal,minimum=0,default=0.001"`
	AllowShort bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=false"`
}

func DefaultModelParams() ModelParams {
	return ModelParams{Model: model.MomentumModelName, Threshold: 0.001}
}

// ModelDriven feeds the trailing lookback window to a predictor on every bar
// and maps the forecast to a signal: above the threshold enters long, below
// minus the threshold is bearish.
type ModelDriven struct {
	params    ModelParams
	predictor model.Predictor
}

func NewModelDriven(params ModelParams, predictor model.Predictor) *ModelDriven {
	return &ModelDriven{params: params, predictor: predictor}
}

func (s *ModelDriven) Name() string {
	return ModelName
}

func (s *ModelDriven) Validate() error {
	if err := validateParams(s.params); err != nil {
		return err
	}

	if s.predictor == nil {
		return errors.Newf(errors.ErrCodeModelNotFound, "model %s is not available", s.params.Model)
	}

	if s.predictor.LookbackWindow() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "model %s has no lookback window", s.params.Model)
	}

	return nil
}

func (s *ModelDriven) Describe() types.StrategyInfo {
	parameters := paramsToMap(s.params)
	if parameters != nil && s.predictor != nil {
		parameters["lookback_window"] = s.predictor.LookbackWindow()
	}

	return types.StrategyInfo{
		Name:        ModelName,
		Type:        types.StrategyTypeModel,
		Description: "Model driven: maps the forecast of a trained predictor to signals via a threshold",
		Parameters:  parameters,
	}
}

func (s *ModelDriven) GenerateSignals(ctx context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	lookback := s.predictor.LookbackWindow()
	signals := types.NewHoldSeries(len(bars))

	for i := lookback - 1; i < len(bars); i++ {
		if err := errors.FromContext(ctx, "signal generation interrupted"); err != nil {
			return nil, err
		}

		forecast, err := s.predictor.Predict(ctx, bars[i-lookback+1:i+1])
		if err != nil {
			switch errors.KindOf(err) {
			case errors.KindCancelled, errors.KindTimedOut:
				return nil, err
			}

			return nil, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err,
				"model %s failed at bar %d", s.params.Model, i)
		}

		switch {
		case forecast > s.params.Threshold:
			signals[i] = types.SignalTypeLongEntry
		case forecast < -s.params.Threshold:
			signals[i] = bearishSignal(s.params.AllowShort)
		}
	}

	return signals, nil
}
