package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const MACrossoverName = "ma_crossover"

type MAType string

const (
	MATypeSMA MAType = "SMA"
	MATypeEMA MAType = "EMA"
)

type MACrossoverParams struct {
	FastPeriod int    `yaml:"fast_period" json:"fast_period" validate:"gt=0,ltfield=SlowPeriod" jsonschema:"title=Fast Period,description=Period of the fast moving average,minimum=1,default=5"`
	SlowPeriod int    `yaml:"slow_period" json:"slow_period" validate:"gt=0" jsonschema:"title=Slow Period,description=Period of the slow moving average,minimum=2,default=20"`
	MAType     MAType `yaml:"ma_type" json:"ma_type" validate:"oneof=SMA EMA" jsonschema:"title=Moving Average Type,enum=SMA,enum=EMA,default=SMA"`
	AllowShort bool   `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,description=Open short positions on bearish crosses,default=false"`
}

func DefaultMACrossoverParams() MACrossoverParams {
	return MACrossoverParams{FastPeriod: 5, SlowPeriod: 20, MAType: MATypeSMA}
}

// MACrossover enters long when the fast average crosses above the slow one.
type MACrossover struct {
	params MACrossoverParams
}

func NewMACrossover(params MACrossoverParams) *MACrossover {
	return &MACrossover{params: params}
}

func (s *MACrossover) Name() string {
	return MACrossoverName
}

func (s *MACrossover) Validate() error {
	return validateParams(s.params)
}

func (s *MACrossover) Describe() types.StrategyInfo {
	return types.StrategyInfo{
		Name:        MACrossoverName,
		Type:        types.StrategyTypeTechnical,
		Description: "Moving average crossover: long when the fast average crosses above the slow average",
		Parameters:  paramsToMap(s.params),
	}
}

func (s *MACrossover) GenerateSignals(_ context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	closes := bars.Closes()

	average := indicator.SMA
	if s.params.MAType == MATypeEMA {
		average = indicator.EMA
	}

	fast, err := average(closes, s.params.FastPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute fast average", err)
	}

	slow, err := average(closes, s.params.SlowPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute slow average", err)
	}

	regimes := make([]regime, len(bars))
	for i := range bars {
		f, okFast := fast.At(i)
		sl, okSlow := slow.At(i)
		regimes[i] = regimeOf(f, sl, okFast && okSlow)
	}

	return crossoverSignals(regimes, s.params.AllowShort), nil
}
