package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	store *DuckDBStore
	ctx   context.Context
	clock time.Time
	ids   int
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (suite *DuckDBStoreTestSuite) SetupTest() {
	store, err := NewDuckDBStore(MemoryPath, logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.ctx = context.Background()
	suite.clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.ids = 0

	store.engineVersion = "v1.2.0"
	store.now = func() time.Time {
		suite.clock = suite.clock.Add(time.Minute)

		return suite.clock
	}
	store.newID = func() string {
		suite.ids++

		return fmt.Sprintf("result-%d", suite.ids)
	}

	suite.store = store
}

func (suite *DuckDBStoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *DuckDBStoreTestSuite) result(strategyID string, finalValue float64) types.BacktestResult {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	trade, err := types.NewTrade(types.Position{
		Side:       types.PositionSideLong,
		Quantity:   10,
		EntryPrice: 100,
		EntryDate:  day,
	}, day.AddDate(0, 0, 3), 110, 1.5)
	suite.Require().NoError(err)

	return types.BacktestResult{
		StrategyID: strategyID,
		Strategy: types.StrategyInfo{
			Name:       "ma_crossover",
			Type:       types.StrategyTypeTechnical,
			Parameters: map[string]any{"ma_type": "SMA"},
		},
		Symbol:         "AAPL",
		InitialCapital: 1000,
		EquitySeries: []types.EquityPoint{
			{Date: day, PortfolioValue: 1000},
			{Date: day.AddDate(0, 0, 3), PortfolioValue: finalValue},
		},
		Trades: []types.Trade{trade},
		Metrics: types.Metrics{
			TotalReturn:   finalValue/1000 - 1,
			TotalTrades:   1,
			WinningTrades: 1,
			FinalValue:    finalValue,
		},
		Logs: []types.LogEntry{{
			Timestamp: day,
			Symbol:    "AAPL",
			Level:     types.LogLevelInfo,
			Message:   "position opened",
			Fields:    map[string]string{"side": "LONG"},
		}},
		EngineVersion: "v1.2.0",
	}
}

func (suite *DuckDBStoreTestSuite) TestSaveAndLoad() {
	saved := suite.result("fast", 1098.5)

	id, err := suite.store.Save(suite.ctx, saved)
	suite.Require().NoError(err)
	suite.Equal("result-1", id)

	loaded, err := suite.store.Load(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal(saved, loaded)
	suite.InDelta(98.5, loaded.Trades[0].PnL(), 1e-9)
}

func (suite *DuckDBStoreTestSuite) TestLoadMissing() {
	_, err := suite.store.Load(suite.ctx, "nope")
	suite.Require().Error(err)
	suite.Equal(errors.KindNotFound, errors.KindOf(err))
}

func (suite *DuckDBStoreTestSuite) TestListOrdersByCreation() {
	summaries, err := suite.store.List(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(summaries)

	_, err = suite.store.Save(suite.ctx, suite.result("first", 1100))
	suite.Require().NoError(err)
	_, err = suite.store.Save(suite.ctx, suite.result("second", 900))
	suite.Require().NoError(err)

	summaries, err = suite.store.List(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(summaries, 2)

	suite.Equal("result-1", summaries[0].ID)
	suite.Equal("first", summaries[0].StrategyID)
	suite.Equal(time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), summaries[0].Timestamp)
	suite.Equal(types.RunStatusSuccess, summaries[0].Status)
	suite.InDelta(1.5, summaries[0].TotalFees, 1e-9)

	suite.Equal("second", summaries[1].StrategyID)
	suite.Equal(900.0, summaries[1].Metrics.FinalValue)
}

func (suite *DuckDBStoreTestSuite) TestDelete() {
	id, err := suite.store.Save(suite.ctx, suite.result("fast", 1100))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.store.Delete(suite.ctx, id))

	_, err = suite.store.Load(suite.ctx, id)
	suite.Equal(errors.KindNotFound, errors.KindOf(err))

	err = suite.store.Delete(suite.ctx, id)
	suite.Equal(errors.KindNotFound, errors.KindOf(err))
}

func (suite *DuckDBStoreTestSuite) TestLoadRejectsNewerResults() {
	result := suite.result("future", 1100)
	result.EngineVersion = "v1.5.0"

	id, err := suite.store.Save(suite.ctx, result)
	suite.Require().NoError(err)

	_, err = suite.store.Load(suite.ctx, id)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))

	result.EngineVersion = "v1.1.9"
	id, err = suite.store.Save(suite.ctx, result)
	suite.Require().NoError(err)

	_, err = suite.store.Load(suite.ctx, id)
	suite.NoError(err)
}

func (suite *DuckDBStoreTestSuite) TestSaveCancelled() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.store.Save(ctx, suite.result("fast", 1100))
	suite.Error(err)
}

func (suite *DuckDBStoreTestSuite) TestExportParquet() {
	_, err := suite.store.Save(suite.ctx, suite.result("fast", 1100))
	suite.Require().NoError(err)

	path := filepath.Join(suite.T().TempDir(), "export", "results.parquet")
	suite.Require().NoError(suite.store.ExportParquet(suite.ctx, path))

	info, err := os.Stat(path)
	suite.Require().NoError(err)
	suite.Greater(info.Size(), int64(0))
}

func (suite *DuckDBStoreTestSuite) TestFileDatabasePersists() {
	path := filepath.Join(suite.T().TempDir(), "db", "results.duckdb")

	first, err := NewDuckDBStore(path, nil)
	suite.Require().NoError(err)

	// stamped with the running engine version on save
	result := suite.result("fast", 1100)
	result.EngineVersion = ""

	id, err := first.Save(suite.ctx, result)
	suite.Require().NoError(err)
	suite.Require().NoError(first.Close())

	second, err := NewDuckDBStore(path, nil)
	suite.Require().NoError(err)
	defer second.Close()

	loaded, err := second.Load(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal("fast", loaded.StrategyID)
}
