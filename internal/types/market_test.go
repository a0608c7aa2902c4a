package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func bar(day int, price float64) PriceBar {
	return PriceBar{
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 1000,
	}
}

func (suite *MarketTestSuite) TestValidatePriceSeries() {
	tests := []struct {
		name         string
		series       PriceSeries
		expectedCode errors.ErrorCode
	}{
		{
			name:   "valid series",
			series: PriceSeries{bar(0, 10), bar(1, 11), bar(3, 12)},
		},
		{
			name:         "empty series",
			series:       PriceSeries{},
			expectedCode: errors.ErrCodeEmptySeries,
		},
		{
			name:         "duplicate dates",
			series:       PriceSeries{bar(0, 10), bar(1, 11), bar(1, 12)},
			expectedCode: errors.ErrCodeDuplicateDates,
		},
		{
			name:         "non monotonic dates",
			series:       PriceSeries{bar(0, 10), bar(2, 11), bar(1, 12)},
			expectedCode: errors.ErrCodeNonMonotonicDates,
		},
		{
			name:         "zero price",
			series:       PriceSeries{bar(0, 10), bar(1, 0)},
			expectedCode: errors.ErrCodeNonPositivePrice,
		},
		{
			name:         "negative price",
			series:       PriceSeries{bar(0, -1)},
			expectedCode: errors.ErrCodeNonPositivePrice,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := ValidatePriceSeries(tt.series)
			if tt.expectedCode == 0 {
				suite.NoError(err)

				return
			}

			suite.Error(err)
			suite.Equal(tt.expectedCode, errors.GetCode(err))
		})
	}
}

func (suite *MarketTestSuite) TestEmptySeriesIsConfigurationError() {
	err := ValidatePriceSeries(nil)
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))

	err = ValidatePriceSeries(PriceSeries{bar(1, 10), bar(0, 10)})
	suite.Equal(errors.KindData, errors.KindOf(err))
}

func (suite *MarketTestSuite) TestSummarizeSeries() {
	series := PriceSeries{bar(0, 10), bar(1, 11), bar(2, 9), bar(3, 12)}
	series[1].High = 13

	summary := SummarizeSeries(series, 252)
	suite.Equal(4, summary.Bars)
	suite.Equal(series[0].Date, summary.Start)
	suite.Equal(series[3].Date, summary.End)
	suite.Equal(9.0, summary.MinPrice)
	suite.Equal(13.0, summary.MaxPrice)
	suite.Equal(1000.0, summary.AverageVolume)
	suite.Greater(summary.AnnualizedVolatility, 0.0)

	flat := SummarizeSeries(PriceSeries{bar(0, 10), bar(1, 10), bar(2, 10)}, 252)
	suite.Equal(0.0, flat.AnnualizedVolatility)
	suite.Equal(SeriesSummary{}, SummarizeSeries(nil, 252))
}

func (suite *MarketTestSuite) TestSeriesAccessors() {
	series := PriceSeries{bar(0, 10), bar(1, 11)}
	suite.Equal([]float64{10, 11}, series.Closes())
	suite.Equal([]float64{10, 11}, series.Highs())
	suite.Equal([]float64{10, 11}, series.Lows())
}
