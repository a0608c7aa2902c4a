package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const multiSymbolCSV = `date,symbol,open,high,low,close,volume
2024-01-03,AAPL,101,102,100,101.5,1000
2024-01-02,AAPL,100,101,99,100.5,1000
2024-01-02,MSFT,300,301,299,300.5,2000
2024-01-04,AAPL,102,103,101,102.5,1000
`

type CSVClientTestSuite struct {
	suite.Suite
	path string
}

func TestCSVClientSuite(t *testing.T) {
	suite.Run(t, new(CSVClientTestSuite))
}

func (suite *CSVClientTestSuite) SetupTest() {
	suite.path = filepath.Join(suite.T().TempDir(), "bars.csv")
	suite.Require().NoError(os.WriteFile(suite.path, []byte(multiSymbolCSV), 0o600))
}

func (suite *CSVClientTestSuite) TestFetchSelectsTickerAndSorts() {
	client := NewCSVClient(suite.path)
	suite.Equal("csv", client.Name())

	series, err := client.Fetch(context.Background(), "aapl", day(1), day(3))
	suite.Require().NoError(err)
	suite.Require().Len(series, 2)
	suite.Equal(day(2), series[0].Date)
	suite.InDelta(101.5, series[1].Close, 1e-9)
}

func (suite *CSVClientTestSuite) TestFetchUnknownTicker() {
	_, err := NewCSVClient(suite.path).Fetch(context.Background(), "TSLA", day(1), day(31))
	suite.Equal(errors.KindUnknownTicker, errors.KindOf(err))
}

func (suite *CSVClientTestSuite) TestFetchEmptyRange() {
	_, err := NewCSVClient(suite.path).Fetch(context.Background(), "MSFT", day(10), day(31))
	suite.Equal(errors.KindEmptyRange, errors.KindOf(err))
}

func (suite *CSVClientTestSuite) TestFetchMissingFile() {
	_, err := NewCSVClient(filepath.Join(suite.T().TempDir(), "missing.csv")).Fetch(context.Background(), "AAPL", day(1), day(2))
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))
}

func (suite *CSVClientTestSuite) TestReadCSVWithoutSymbolColumn() {
	input := "date,open,high,low,close,volume\n2024-01-02T00:00:00Z,1,2,0.5,1.5,10\n2024-01-03 00:00:00,2,3,1,2.5,10\n"

	bars, known, err := ReadCSV(strings.NewReader(input), "ANY")
	suite.Require().NoError(err)
	suite.True(known)
	suite.Require().Len(bars, 2)
	suite.Equal(day(3), bars[1].Date)
}

func (suite *CSVClientTestSuite) TestReadCSVInvalidDate() {
	input := "date,open,high,low,close,volume\n01/02/2024,1,2,0.5,1.5,10\n"

	_, _, err := ReadCSV(strings.NewReader(input), "ANY")
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
	suite.Contains(err.Error(), "row 1")
}
