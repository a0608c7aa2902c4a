package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const MACDName = "macd"

type MACDParams struct {
	FastPeriod   int  `yaml:"fast_period" json:"fast_period" validate:"gt=0,ltfield=SlowPeriod" jsonschema:"title=Fast Period,minimum=1,default=12"`
	SlowPeriod   int  `yaml:"slow_period" json:"slow_period" validate:"gt=0" jsonschema:"title=Slow Period,minimum=2,default=26"`
	SignalPeriod int  `yaml:"signal_period" json:"signal_period" validate:"gt=0" jsonschema:"title=Signal Period,minimum=1,default=9"`
	AllowShort   bool `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=false"`
}

func DefaultMACDParams() MACDParams {
	return MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
}

// MACDCrossover trades crosses of the MACD line over its signal line.
type MACDCrossover struct {
	params MACDParams
}

func NewMACDCrossover(params MACDParams) *MACDCrossover {
	return &MACDCrossover{params: params}
}

func (s *MACDCrossover) Name() string {
	return MACDName
}

func (s *MACDCrossover) Validate() error {
	return validateParams(s.params)
}

func (s *MACDCrossover) Describe() types.StrategyInfo {
	return types.StrategyInfo{
		Name:        MACDName,
		Type:        types.StrategyTypeTechnical,
		Description: "MACD crossover: long when the MACD line crosses above its signal line",
		Parameters:  paramsToMap(s.params),
	}
}

func (s *MACDCrossover) GenerateSignals(_ context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	macd, err := indicator.MACD(bars.Closes(), s.params.FastPeriod, s.params.SlowPeriod, s.params.SignalPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute macd", err)
	}

	regimes := make([]regime, len(bars))
	for i := range bars {
		line, okLine := macd.Line.At(i)
		signal, okSignal := macd.Signal.At(i)
		regimes[i] = regimeOf(line, signal, okLine && okSignal)
	}

	return crossoverSignals(regimes, s.params.AllowShort), nil
}
