package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const KeltnerName = "keltner_channel"

type KeltnerParams struct {
	Period     int     `yaml:"period" json:"period" validate:"gt=0" jsonschema:"title=Period,minimum=1,default=20"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier" validate:"gt=0" jsonschema:"title=ATR Multiplier,exclusiveMinimum=0,default=2"`
	AllowShort bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=false"`
}

func DefaultKeltnerParams() KeltnerParams {
	return KeltnerParams{Period: 20, Multiplier: 2}
}

// KeltnerReversion trades reversions to the EMA from outside an ATR channel.
type KeltnerReversion struct {
	params KeltnerParams
}

func NewKeltnerReversion(params KeltnerParams) *KeltnerReversion {
	return &KeltnerReversion{params: params}
}

func (s *KeltnerReversion) Name() string {
	return KeltnerName
}

func (s *KeltnerReversion) Validate() error {
	return validateParams(s.params)
}

func (s *KeltnerReversion) Describe() types.StrategyInfo {
	return types.StrategyInfo{
		Name:        KeltnerName,
		Type:        types.StrategyTypeTechnical,
		Description: "Keltner channel reversion: long at the lower channel, exit at the upper channel",
		Parameters:  paramsToMap(s.params),
	}
}

func (s *KeltnerReversion) GenerateSignals(_ context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	channel, err := indicator.KeltnerChannel(bars, s.params.Period, s.params.Multiplier)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute keltner channel", err)
	}

	return bandSignals(bars.Closes(), channel.Upper.At, channel.Lower.At, s.params.AllowShort), nil
}
