package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const RSIName = "rsi"

type RSIParams struct {
	Period     int     `yaml:"period" json:"period" validate:"gt=0" jsonschema:"title=Period,minimum=1,default=14"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"gt=0,lt=100,gtfield=Oversold" jsonschema:"title=Overbought Level,minimum=0,maximum=100,default=70"`
	Oversold   float64 `yaml:"oversold" json:"oversold" validate:"gt=0,lt=100" jsonschema:"title=Oversold Level,minimum=0,maximum=100,default=30"`
	AllowShort bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=false"`
}

func DefaultRSIParams() RSIParams {
	return RSIParams{Period: 14, Overbought: 70, Oversold: 30}
}

// RSIThreshold buys when RSI is below the oversold level and sells above the overbought level.
type RSIThreshold struct {
	params RSIParams
}

func NewRSIThreshold(params RSIParams) *RSIThreshold {
	return &RSIThreshold{params: params}
}

func (s *RSIThreshold) Name() string {
	return RSIName
}

func (s *RSIThreshold) Validate() error {
	return validateParams(s.params)
}

func (s *RSIThreshold) Describe() types.StrategyInfo {
	return types.StrategyInfo{
		Name:        RSIName,
		Type:        types.StrategyTypeTechnical,
		Description: "RSI threshold: long below the oversold level, exit above the overbought level",
		Parameters:  paramsToMap(s.params),
	}
}

func (s *RSIThreshold) GenerateSignals(_ context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	rsi, err := indicator.RSI(bars.Closes(), s.params.Period)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute rsi", err)
	}

	signals := types.NewHoldSeries(len(bars))

	for i := range bars {
		value, ok := rsi.At(i)
		if !ok {
			continue
		}

		switch {
		case value < s.params.Oversold:
			signals[i] = types.SignalTypeLongEntry
		case value > s.params.Overbought:
			signals[i] = bearishSignal(s.params.AllowShort)
		}
	}

	return signals, nil
}
