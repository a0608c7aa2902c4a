package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const BollingerBandsName = "bollinger_bands"

type BollingerBandsParams struct {
	Period     int     `yaml:"period" json:"period" validate:"gt=0" jsonschema:"title=Period,minimum=1,default=20"`
	StdDev     float64 `yaml:"std_dev" json:"std_dev" validate:"gt=0" jsonschema:"title=Standard Deviations,description=Band width in standard deviations,exclusiveMinimum=0,default=2"`
	AllowShort bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=false"`
}

func DefaultBollingerBandsParams() BollingerBandsParams {
	return BollingerBandsParams{Period: 20, StdDev: 2}
}

// BollingerReversion buys at or below the lower band and sells at or above the upper band.
type BollingerReversion struct {
	params BollingerBandsParams
}

func NewBollingerReversion(params BollingerBandsParams) *BollingerReversion {
	return &BollingerReversion{params: params}
}

func (s *BollingerReversion) Name() string {
	return BollingerBandsName
}

func (s *BollingerReversion) Validate() error {
	return validateParams(s.params)
}

func (s *BollingerReversion) Describe() types.StrategyInfo {
	return types.StrategyInfo{
		Name:        BollingerBandsName,
		Type:        types.StrategyTypeTechnical,
		Description: "Bollinger mean reversion: long at the lower band, exit at the upper band",
		Parameters:  paramsToMap(s.params),
	}
}

func (s *BollingerReversion) GenerateSignals(_ context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	closes := bars.Closes()

	bands, err := indicator.BollingerBands(closes, s.params.Period, s.params.StdDev)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute bollinger bands", err)
	}

	return bandSignals(closes, bands.Upper.At, bands.Lower.At, s.params.AllowShort), nil
}
