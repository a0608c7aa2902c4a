package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// PriceBar is one OHLCV record for one period.
type PriceBar struct {
	Date   time.Time `yaml:"date" json:"date" csv:"date"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// PriceSeries is an ascending, duplicate free sequence of bars for one instrument.
// A series is never mutated once loaded.
type PriceSeries []PriceBar

// ValidatePriceSeries rejects series the simulator cannot replay.
// An empty series is a configuration problem; malformed bars are data problems.
func ValidatePriceSeries(series PriceSeries) error {
	if len(series) == 0 {
		return errors.New(errors.ErrCodeEmptySeries, "price series is empty")
	}

	for i, bar := range series {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return errors.Newf(errors.ErrCodeNonPositivePrice,
				"bar %d (%s) has a non-positive price", i, bar.Date.Format(time.DateOnly))
		}

		if i == 0 {
			continue
		}

		prev := series[i-1].Date
		switch {
		case bar.Date.Equal(prev):
			return errors.Newf(errors.ErrCodeDuplicateDates,
				"bar %d duplicates date %s", i, bar.Date.Format(time.DateOnly))
		case bar.Date.Before(prev):
			return errors.Newf(errors.ErrCodeNonMonotonicDates,
				"bar %d (%s) is earlier than bar %d (%s)",
				i, bar.Date.Format(time.DateOnly), i-1, prev.Format(time.DateOnly))
		}
	}

	return nil
}

// Closes returns the close prices of the series.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}

	return closes
}

// Highs returns the high prices of the series.
func (s PriceSeries) Highs() []float64 {
	highs := make([]float64, len(s))
	for i, bar := range s {
		highs[i] = bar.High
	}

	return highs
}

// Lows returns the low prices of the series.
func (s PriceSeries) Lows() []float64 {
	lows := make([]float64, len(s))
	for i, bar := range s {
		lows[i] = bar.Low
	}

	return lows
}

// SeriesSummary describes a loaded series.
type SeriesSummary struct {
	Bars                 int       `yaml:"bars" json:"bars"`
	Start                time.Time `yaml:"start" json:"start"`
	End                  time.Time `yaml:"end" json:"end"`
	MinPrice             float64   `yaml:"min_price" json:"min_price"`
	MaxPrice             float64   `yaml:"max_price" json:"max_price"`
	AverageVolume        float64   `yaml:"average_volume" json:"average_volume"`
	AnnualizedVolatility float64   `yaml:"annualized_volatility" json:"annualized_volatility"`
}

// SummarizeSeries computes the bar count, price range, average volume and the
// annualized volatility of close to close returns.
func SummarizeSeries(series PriceSeries, barsPerYear int) SeriesSummary {
	if len(series) == 0 {
		return SeriesSummary{}
	}

	summary := SeriesSummary{
		Bars:     len(series),
		Start:    series[0].Date,
		End:      series[len(series)-1].Date,
		MinPrice: math.Inf(1),
		MaxPrice: math.Inf(-1),
	}

	var volume float64
	returns := make([]float64, 0, len(series))

	for i, bar := range series {
		summary.MinPrice = math.Min(summary.MinPrice, bar.Low)
		summary.MaxPrice = math.Max(summary.MaxPrice, bar.High)
		volume += bar.Volume

		if i > 0 {
			returns = append(returns, bar.Close/series[i-1].Close-1)
		}
	}

	summary.AverageVolume = volume / float64(len(series))

	if len(returns) > 1 {
		var mean float64
		for _, r := range returns {
			mean += r
		}

		mean /= float64(len(returns))

		var variance float64
		for _, r := range returns {
			variance += (r - mean) * (r - mean)
		}

		variance /= float64(len(returns) - 1)
		summary.AnnualizedVolatility = math.Sqrt(variance) * math.Sqrt(float64(barsPerYear))
	}

	return summary
}
