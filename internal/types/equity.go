package types

import "time"

// EquityPoint is the portfolio value at the close of one bar.
type EquityPoint struct {
	Date           time.Time `yaml:"date" json:"date" csv:"date"`
	PortfolioValue float64   `yaml:"portfolio_value" json:"portfolio_value" csv:"portfolio_value"`
}

// EquityValues returns the portfolio values of the series.
func EquityValues(series []EquityPoint) []float64 {
	values := make([]float64, len(series))
	for i, point := range series {
		values[i] = point.PortfolioValue
	}

	return values
}
