package provider

import (
	"context"
	stderrors "errors"
	"strconv"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockBinanceAPIClient implements BinanceAPIClient for testing. Each Do call
// returns the next page and error.
type mockBinanceAPIClient struct {
	pages     [][]*binance.Kline
	errs      []error
	callCount int
	starts    []int64
	symbol    string
	interval  string
}

func (m *mockBinanceAPIClient) NewKlinesService() BinanceKlinesService {
	return &mockBinanceKlinesService{client: m}
}

type mockBinanceKlinesService struct {
	client *mockBinanceAPIClient
	limit  int
}

func (m *mockBinanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	m.client.symbol = symbol

	return m
}

func (m *mockBinanceKlinesService) Interval(interval string) BinanceKlinesService {
	m.client.interval = interval

	return m
}

func (m *mockBinanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	m.client.starts = append(m.client.starts, startTime)

	return m
}

func (m *mockBinanceKlinesService) EndTime(_ int64) BinanceKlinesService {
	return m
}

func (m *mockBinanceKlinesService) Limit(limit int) BinanceKlinesService {
	m.limit = limit

	return m
}

func (m *mockBinanceKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	idx := m.client.callCount
	m.client.callCount++

	var err error
	if idx < len(m.client.errs) {
		err = m.client.errs[idx]
	}

	if idx < len(m.client.pages) {
		return m.client.pages[idx], err
	}

	return nil, err
}

// klines returns n consecutive hourly klines starting at start.
func klines(start time.Time, n int) []*binance.Kline {
	result := make([]*binance.Kline, 0, n)

	for i := range n {
		open := start.Add(time.Duration(i) * time.Hour)
		price := strconv.FormatFloat(100+float64(i), 'f', 2, 64)

		//nolint:exhaustruct // trade counts are not read
		result = append(result, &binance.Kline{
			OpenTime:  open.UnixMilli(),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    "10.5",
			CloseTime: open.Add(time.Hour).UnixMilli() - 1,
		})
	}

	return result
}

type BinanceClientTestSuite struct {
	suite.Suite
	start time.Time
	end   time.Time
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
}

func (suite *BinanceClientTestSuite) newClient(api *mockBinanceAPIClient) *BinanceClient {
	return NewBinanceClientWithAPI(api, nil).WithBackOff(noWait)
}

func (suite *BinanceClientTestSuite) TestNewBinanceClient() {
	client := NewBinanceClient(nil)
	suite.NotNil(client.apiClient)
	suite.Equal("binance", client.Name())
	suite.Equal("1d", client.interval)
}

func (suite *BinanceClientTestSuite) TestFetchSinglePage() {
	api := &mockBinanceAPIClient{pages: [][]*binance.Kline{klines(suite.start, 3)}}

	series, err := suite.newClient(api).WithInterval("1h").Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Require().Len(series, 3)
	suite.Equal(suite.start, series[0].Date)
	suite.InDelta(102.0, series[2].Close, 1e-9)
	suite.InDelta(10.5, series[2].Volume, 1e-9)

	suite.Equal("BTCUSDT", api.symbol)
	suite.Equal("1h", api.interval)
	suite.Equal(1, api.callCount)
}

func (suite *BinanceClientTestSuite) TestFetchPaginates() {
	first := klines(suite.start, binancePageSize)
	second := klines(suite.start.Add(binancePageSize*time.Hour), 10)
	api := &mockBinanceAPIClient{pages: [][]*binance.Kline{first, second}}

	series, err := suite.newClient(api).Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Len(series, binancePageSize+10)
	suite.Equal(2, api.callCount)
	suite.Equal([]int64{suite.start.UnixMilli(), first[len(first)-1].CloseTime + 1}, api.starts)
}

func (suite *BinanceClientTestSuite) TestFetchRetriesTransientPage() {
	api := &mockBinanceAPIClient{
		pages: [][]*binance.Kline{nil, klines(suite.start, 2)},
		errs:  []error{stderrors.New("connection reset by peer")},
	}

	series, err := suite.newClient(api).Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Len(series, 2)
	suite.Equal(2, api.callCount)
}

func (suite *BinanceClientTestSuite) TestFetchUnknownSymbol() {
	api := &mockBinanceAPIClient{
		errs: []error{&common.APIError{Code: binanceInvalidSymbol, Message: "Invalid symbol."}},
	}

	_, err := suite.newClient(api).Fetch(context.Background(), "NOPE", suite.start, suite.end)
	suite.Equal(errors.KindUnknownTicker, errors.KindOf(err))
	suite.Equal(1, api.callCount)
}

func (suite *BinanceClientTestSuite) TestFetchOtherAPIErrorIsNotRetried() {
	api := &mockBinanceAPIClient{
		errs: []error{&common.APIError{Code: -1100, Message: "Illegal characters found in parameter."}},
	}

	_, err := suite.newClient(api).Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
	suite.Equal(1, api.callCount)
}

func (suite *BinanceClientTestSuite) TestFetchEmptyRange() {
	api := &mockBinanceAPIClient{pages: [][]*binance.Kline{{}}}

	_, err := suite.newClient(api).Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.Equal(errors.KindEmptyRange, errors.KindOf(err))
}

func (suite *BinanceClientTestSuite) TestFetchInvalidNumbers() {
	page := klines(suite.start, 1)
	page[0].Close = "not-a-number"
	api := &mockBinanceAPIClient{pages: [][]*binance.Kline{page}}

	_, err := suite.newClient(api).Fetch(context.Background(), "BTCUSDT", suite.start, suite.end)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
	suite.Contains(err.Error(), "not-a-number")
}

func (suite *BinanceClientTestSuite) TestConvertKlines() {
	bars, err := convertKlines(klines(suite.start, 2))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.Equal(suite.start.Add(time.Hour), bars[1].Date)
	suite.InDelta(101.0, bars[1].Open, 1e-9)

	bars, err = convertKlines(nil)
	suite.NoError(err)
	suite.Empty(bars)
}
