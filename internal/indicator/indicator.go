package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Output maps an output name (for example "upper") to its series.
type Output map[string]Series

// Indicator is a configurable wrapper around one of the indicator functions so
// indicators can be looked up and computed by name.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config sets the parameters of the indicator. Numbers may be int or float64.
	Config(params ...any) error
	// Calculate computes every output of the indicator over bars.
	Calculate(bars types.PriceSeries) (Output, error)
}

// MovingAverage wraps SMA.
type MovingAverage struct {
	period int
}

func NewMA() Indicator {
	return &MovingAverage{period: 20}
}

func (m *MovingAverage) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Config expects one parameter: period.
func (m *MovingAverage) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	m.period = period

	return nil
}

func (m *MovingAverage) Calculate(bars types.PriceSeries) (Output, error) {
	sma, err := SMA(bars.Closes(), m.period)
	if err != nil {
		return nil, err
	}

	return Output{"ma": sma}, nil
}

// ExponentialMovingAverage wraps EMA.
type ExponentialMovingAverage struct {
	period int
}

func NewEMA() Indicator {
	return &ExponentialMovingAverage{period: 20}
}

func (e *ExponentialMovingAverage) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config expects one parameter: period.
func (e *ExponentialMovingAverage) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	e.period = period

	return nil
}

func (e *ExponentialMovingAverage) Calculate(bars types.PriceSeries) (Output, error) {
	ema, err := EMA(bars.Closes(), e.period)
	if err != nil {
		return nil, err
	}

	return Output{"ema": ema}, nil
}

// RelativeStrength wraps RSI.
type RelativeStrength struct {
	period int
}

func NewRSI() Indicator {
	return &RelativeStrength{period: 14}
}

func (r *RelativeStrength) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config expects one parameter: period.
func (r *RelativeStrength) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	r.period = period

	return nil
}

func (r *RelativeStrength) Calculate(bars types.PriceSeries) (Output, error) {
	rsi, err := RSI(bars.Closes(), r.period)
	if err != nil {
		return nil, err
	}

	return Output{"rsi": rsi}, nil
}

// MovingAverageConvergence wraps MACD.
type MovingAverageConvergence struct {
	fast, slow, signal int
}

func NewMACD() Indicator {
	return &MovingAverageConvergence{fast: 12, slow: 26, signal: 9}
}

func (m *MovingAverageConvergence) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config expects three parameters: fast period, slow period, signal period.
func (m *MovingAverageConvergence) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeInvalidParameter,
			"Config expects 3 parameters: fast period (int), slow period (int), signal period (int)")
	}

	periods := make([]int, 3)
	for i, name := range []string{"fast period", "slow period", "signal period"} {
		period, err := intParam(params[i], name)
		if err != nil {
			return err
		}

		if err := validatePeriod(name, period); err != nil {
			return err
		}

		periods[i] = period
	}

	if periods[0] >= periods[1] {
		return errors.Newf(errors.ErrCodeInvalidPeriod,
			"fast period (%d) must be shorter than slow period (%d)", periods[0], periods[1])
	}

	m.fast, m.slow, m.signal = periods[0], periods[1], periods[2]

	return nil
}

func (m *MovingAverageConvergence) Calculate(bars types.PriceSeries) (Output, error) {
	result, err := MACD(bars.Closes(), m.fast, m.slow, m.signal)
	if err != nil {
		return nil, err
	}

	return Output{"macd": result.Line, "signal": result.Signal, "histogram": result.Histogram}, nil
}

// BollingerBandsIndicator wraps BollingerBands.
type BollingerBandsIndicator struct {
	period int
	stdDev float64
}

func NewBollingerBands() Indicator {
	return &BollingerBandsIndicator{period: 20, stdDev: 2}
}

func (b *BollingerBandsIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config expects two parameters: period and standard deviation multiplier.
func (b *BollingerBandsIndicator) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter,
			"Config expects 2 parameters: period (int), standard deviation multiplier (float64)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	stdDev, err := floatParam(params[1], "standard deviation multiplier")
	if err != nil {
		return err
	}

	if stdDev <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "standard deviation multiplier must be positive, got %v", stdDev)
	}

	b.period, b.stdDev = period, stdDev

	return nil
}

func (b *BollingerBandsIndicator) Calculate(bars types.PriceSeries) (Output, error) {
	bands, err := BollingerBands(bars.Closes(), b.period, b.stdDev)
	if err != nil {
		return nil, err
	}

	return Output{"upper": bands.Upper, "middle": bands.Middle, "lower": bands.Lower}, nil
}

// AverageTrueRange wraps ATR.
type AverageTrueRange struct {
	period int
}

func NewATR() Indicator {
	return &AverageTrueRange{period: 14}
}

func (a *AverageTrueRange) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config expects one parameter: period.
func (a *AverageTrueRange) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	a.period = period

	return nil
}

func (a *AverageTrueRange) Calculate(bars types.PriceSeries) (Output, error) {
	atr, err := ATR(bars, a.period)
	if err != nil {
		return nil, err
	}

	return Output{"atr": atr}, nil
}

// Keltner wraps KeltnerChannel.
type Keltner struct {
	period     int
	multiplier float64
}

func NewKeltner() Indicator {
	return &Keltner{period: 20, multiplier: 2}
}

func (k *Keltner) Name() types.IndicatorType {
	return types.IndicatorTypeKeltner
}

// Config expects two parameters: period and ATR multiplier.
func (k *Keltner) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter,
			"Config expects 2 parameters: period (int), multiplier (float64)")
	}

	period, err := intParam(params[0], "period")
	if err != nil {
		return err
	}

	if err := validatePeriod("period", period); err != nil {
		return err
	}

	multiplier, err := floatParam(params[1], "multiplier")
	if err != nil {
		return err
	}

	if multiplier <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "multiplier must be positive, got %v", multiplier)
	}

	k.period, k.multiplier = period, multiplier

	return nil
}

func (k *Keltner) Calculate(bars types.PriceSeries) (Output, error) {
	bands, err := KeltnerChannel(bars, k.period, k.multiplier)
	if err != nil {
		return nil, err
	}

	return Output{"upper": bands.Upper, "middle": bands.Middle, "lower": bands.Lower}, nil
}

func intParam(param any, name string) (int, error) {
	switch v := param.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s must be a whole number, got %v", name, v)
		}

		return int(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid type for %s, expected int", name)
	}
}

func floatParam(param any, name string) (float64, error) {
	switch v := param.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid type for %s, expected float64", name)
	}
}
