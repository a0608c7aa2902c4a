package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/model"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type compareBody struct {
	Outcomes []struct {
		StrategyID string           `json:"strategy_id"`
		Status     types.RunStatus  `json:"status"`
		ErrorKind  errors.ErrorKind `json:"error_kind"`
		Result     json.RawMessage  `json:"result"`
	} `json:"outcomes"`
	ResultIDs []string `json:"result_ids"`
}

type ServerTestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	registry   *strategy.Registry
	engine     engine.Engine
	store      *store.DuckDBStore
	mockSource *mocks.MockSource
	server     *Server
	series     types.PriceSeries
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.registry = strategy.NewDefaultRegistry(model.NewDefaultRegistry())

	var err error

	suite.engine, err = engine_v1.NewBacktestEngineV1(engine_v1.EmptyConfig(), suite.registry, nil)
	suite.Require().NoError(err)

	suite.store, err = store.NewDuckDBStore(store.MemoryPath, nil)
	suite.Require().NoError(err)

	suite.mockSource = mocks.NewMockSource(suite.ctrl)
	suite.mockSource.EXPECT().Name().Return("mock").AnyTimes()

	suite.server = suite.newServer(suite.store)
	suite.series = mocks.NewDataGenerator(42).Generate(mocks.DefaultConfig())
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *ServerTestSuite) newServer(resultStore store.ResultStore) *Server {
	server, err := NewServer(ServerConfig{
		Engine:   suite.engine,
		Registry: suite.registry,
		Source:   suite.mockSource,
		Store:    resultStore,
		Defaults: engine.RunParams{InitialCapital: 10000, CommissionRate: 0.001},
	})
	suite.Require().NoError(err)

	return server
}

func (suite *ServerTestSuite) do(server *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&reader).Encode(body))
	}

	request := httptest.NewRequest(method, path, &reader)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)

	return recorder
}

func (suite *ServerTestSuite) decodeError(recorder *httptest.ResponseRecorder) ErrorResponse {
	var response ErrorResponse
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))

	return response
}

func (suite *ServerTestSuite) TestNewServerRequiresEngineAndRegistry() {
	_, err := NewServer(ServerConfig{Registry: suite.registry})
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))

	_, err = NewServer(ServerConfig{Engine: suite.engine})
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))
}

func (suite *ServerTestSuite) TestHealth() {
	recorder := suite.do(suite.server, http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, recorder.Code)
	suite.JSONEq(`{"status":"ok"}`, recorder.Body.String())
}

func (suite *ServerTestSuite) TestRunBacktestWithInlineBarsIsStored() {
	capital := 5000.0
	recorder := suite.do(suite.server, http.MethodPost, "/backtests", BacktestRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series, InitialCapital: &capital},
		Strategy:          types.StrategyConfig{Name: strategy.MACrossoverName},
	})
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var response BacktestResponse
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.NotEmpty(response.ID)
	suite.Equal("TEST", response.Result.Symbol)
	suite.InDelta(5000.0, response.Result.InitialCapital, 1e-9)
	suite.InDelta(0.001, response.Result.CommissionRate, 1e-9)
	suite.Len(response.Result.EquitySeries, len(suite.series))

	recorder = suite.do(suite.server, http.MethodGet, "/results/"+response.ID, nil)
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var loaded BacktestResponse
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &loaded))
	suite.Equal(response.ID, loaded.ID)
	suite.InDelta(response.Result.Metrics.FinalValue, loaded.Result.Metrics.FinalValue, 1e-9)
}

func (suite *ServerTestSuite) TestRunBacktestFetchesFromSource() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	suite.mockSource.EXPECT().Fetch(gomock.Any(), "SPY", start, end).Return(suite.series, nil)

	recorder := suite.do(suite.newServer(nil), http.MethodPost, "/backtests", BacktestRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "SPY", Start: start, End: end},
		Strategy:          types.StrategyConfig{Name: strategy.RSIName},
	})
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var response BacktestResponse
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Empty(response.ID)
	suite.Equal("SPY", response.Result.Symbol)
}

func (suite *ServerTestSuite) TestRunBacktestErrors() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	suite.mockSource.EXPECT().Fetch(gomock.Any(), "NOPE", start, end).
		Return(nil, errors.New(errors.ErrCodeUnknownTicker, "unknown ticker NOPE"))
	suite.mockSource.EXPECT().Fetch(gomock.Any(), "FLAKY", start, end).
		Return(nil, errors.New(errors.ErrCodeTransientFetch, "rate limited"))

	negative := -1.0
	duplicated := append(types.PriceSeries{}, suite.series[:3]...)
	duplicated[2].Date = duplicated[1].Date

	testCases := []struct {
		name   string
		body   any
		status int
		kind   errors.ErrorKind
	}{
		{"malformed body", "not an object", http.StatusBadRequest, errors.KindConfiguration},
		{"missing symbol", BacktestRequest{Strategy: types.StrategyConfig{Name: "rsi"}}, http.StatusBadRequest, errors.KindConfiguration},
		{"unknown strategy", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
			Strategy:          types.StrategyConfig{Name: "does_not_exist"},
		}, http.StatusBadRequest, errors.KindConfiguration},
		{"negative capital", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series, InitialCapital: &negative},
			Strategy:          types.StrategyConfig{Name: "rsi"},
		}, http.StatusBadRequest, errors.KindConfiguration},
		{"duplicate dates", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: duplicated},
			Strategy:          types.StrategyConfig{Name: "rsi"},
		}, http.StatusBadRequest, errors.KindData},
		{"no range to fetch", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "TEST"},
			Strategy:          types.StrategyConfig{Name: "rsi"},
		}, http.StatusBadRequest, errors.KindConfiguration},
		{"unknown ticker", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "NOPE", Start: start, End: end},
			Strategy:          types.StrategyConfig{Name: "rsi"},
		}, http.StatusNotFound, errors.KindUnknownTicker},
		{"transient fetch", BacktestRequest{
			MarketDataRequest: MarketDataRequest{Symbol: "FLAKY", Start: start, End: end},
			Strategy:          types.StrategyConfig{Name: "rsi"},
		}, http.StatusServiceUnavailable, errors.KindTransientFetch},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			recorder := suite.do(suite.server, http.MethodPost, "/backtests", tc.body)
			suite.Equal(tc.status, recorder.Code, recorder.Body.String())
			suite.Equal(tc.kind, suite.decodeError(recorder).ErrorKind)
		})
	}
}

func (suite *ServerTestSuite) TestCompare() {
	recorder := suite.do(suite.server, http.MethodPost, "/compare", CompareRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
		Strategies: []types.StrategyConfig{
			{ID: "fast", Name: strategy.MACrossoverName, Parameters: map[string]any{"fast_period": 3, "slow_period": 10}},
			{ID: "slow", Name: strategy.MACrossoverName},
			{ID: "bands", Name: strategy.BollingerBandsName},
		},
	})
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var response compareBody
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Require().Len(response.Outcomes, 3)
	suite.Require().Len(response.ResultIDs, 3)

	for i, id := range []string{"fast", "slow", "bands"} {
		suite.Equal(id, response.Outcomes[i].StrategyID)
		suite.Equal(types.RunStatusSuccess, response.Outcomes[i].Status)
		suite.NotEmpty(response.Outcomes[i].Result)
		suite.NotEmpty(response.ResultIDs[i])
	}

	recorder = suite.do(suite.server, http.MethodGet, "/results", nil)
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var summaries []types.ResultSummary
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &summaries))
	suite.Len(summaries, 3)
}

func (suite *ServerTestSuite) TestCompareIsolatesInvalidConfig() {
	recorder := suite.do(suite.server, http.MethodPost, "/compare", CompareRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
		Strategies: []types.StrategyConfig{
			{ID: "ok", Name: strategy.RSIName},
			{ID: "bad", Name: strategy.MACrossoverName, Parameters: map[string]any{"fast_period": 30, "slow_period": 10}},
		},
	})
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var response compareBody
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Require().Len(response.Outcomes, 2)
	suite.Equal(types.RunStatusSuccess, response.Outcomes[0].Status)
	suite.Equal(types.RunStatusFailed, response.Outcomes[1].Status)
	suite.Equal(errors.KindConfiguration, response.Outcomes[1].ErrorKind)

	suite.Require().Len(response.ResultIDs, 2)
	suite.NotEmpty(response.ResultIDs[0])
	suite.Empty(response.ResultIDs[1])

	summaries, err := suite.store.List(context.Background())
	suite.Require().NoError(err)
	suite.Len(summaries, 1)

	recorder = suite.do(suite.server, http.MethodPost, "/compare", CompareRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
	})
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestCompareSameVariantKeepsEveryResult() {
	recorder := suite.do(suite.server, http.MethodPost, "/compare", CompareRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
		Strategies: []types.StrategyConfig{
			{Name: strategy.MACrossoverName, Parameters: map[string]any{"fast_period": 3, "slow_period": 10}},
			{Name: strategy.MACrossoverName, Parameters: map[string]any{"fast_period": 5, "slow_period": 30}},
		},
	})
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var response compareBody
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	suite.Require().Len(response.Outcomes, 2)
	suite.Equal(response.Outcomes[0].StrategyID, response.Outcomes[1].StrategyID)

	suite.Require().Len(response.ResultIDs, 2)
	suite.NotEmpty(response.ResultIDs[0])
	suite.NotEmpty(response.ResultIDs[1])
	suite.NotEqual(response.ResultIDs[0], response.ResultIDs[1])

	for _, id := range response.ResultIDs {
		recorder = suite.do(suite.server, http.MethodGet, "/results/"+id, nil)
		suite.Equal(http.StatusOK, recorder.Code)
	}

	summaries, err := suite.store.List(context.Background())
	suite.Require().NoError(err)
	suite.Len(summaries, 2)
}

func (suite *ServerTestSuite) TestListStrategies() {
	recorder := suite.do(suite.server, http.MethodGet, "/strategies", nil)
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var entries []strategy.CatalogEntry
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &entries))
	suite.Len(entries, len(suite.registry.List()))

	recorder = suite.do(suite.server, http.MethodGet, "/strategies/ma_crossover/schema", nil)
	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Contains(recorder.Body.String(), "fast_period")

	recorder = suite.do(suite.server, http.MethodGet, "/strategies/nope/schema", nil)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestResultNotFound() {
	recorder := suite.do(suite.server, http.MethodGet, "/results/missing", nil)
	suite.Equal(http.StatusNotFound, recorder.Code)
	suite.Equal(errors.KindNotFound, suite.decodeError(recorder).ErrorKind)

	recorder = suite.do(suite.server, http.MethodDelete, "/results/missing", nil)
	suite.Equal(http.StatusNotFound, recorder.Code)

	recorder = suite.do(suite.newServer(nil), http.MethodGet, "/results/missing", nil)
	suite.Equal(http.StatusNotFound, recorder.Code)
}

func (suite *ServerTestSuite) TestDeleteResult() {
	mockStore := mocks.NewMockResultStore(suite.ctrl)
	mockStore.EXPECT().Delete(gomock.Any(), "abc").Return(nil)

	recorder := suite.do(suite.newServer(mockStore), http.MethodDelete, "/results/abc", nil)
	suite.Equal(http.StatusNoContent, recorder.Code)
}

func (suite *ServerTestSuite) TestStoreFailureIsReported() {
	mockStore := mocks.NewMockResultStore(suite.ctrl)
	mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).
		Return("", errors.New(errors.ErrCodePersistenceFailed, "disk full"))

	recorder := suite.do(suite.newServer(mockStore), http.MethodPost, "/backtests", BacktestRequest{
		MarketDataRequest: MarketDataRequest{Symbol: "TEST", Bars: suite.series},
		Strategy:          types.StrategyConfig{Name: strategy.RSIName},
	})
	suite.Equal(http.StatusInternalServerError, recorder.Code)
	suite.Equal(errors.KindPersistence, suite.decodeError(recorder).ErrorKind)
}

func (suite *ServerTestSuite) TestStartAndShutdown() {
	suite.Require().NoError(suite.server.Start("127.0.0.1:0"))
	suite.NotEmpty(suite.server.Address())

	response, err := http.Get("http://" + suite.server.Address() + "/health")
	suite.Require().NoError(err)
	response.Body.Close()
	suite.Equal(http.StatusOK, response.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	suite.NoError(suite.server.Shutdown(ctx))
}

func (suite *ServerTestSuite) TestStatusOf() {
	suite.Equal(http.StatusGatewayTimeout, statusOf(errors.KindTimedOut))
	suite.Equal(http.StatusRequestTimeout, statusOf(errors.KindCancelled))
	suite.Equal(http.StatusUnprocessableEntity, statusOf(errors.KindStrategyRuntime))
	suite.Equal(http.StatusInternalServerError, statusOf(errors.KindInternal))
}
