package engine

import (
	"context"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const (
	L = types.SignalTypeLongEntry
	S = types.SignalTypeShortEntry
	X = types.SignalTypeExit
	H = types.SignalTypeHold
)

// BacktestTradingTestSuite is a test suite for BacktestTrading
type BacktestTradingTestSuite struct {
	suite.Suite
	logger *logger.Logger
	runLog *log.RunLog
}

func TestBacktestTradingTestSuite(t *testing.T) {
	suite.Run(t, new(BacktestTradingTestSuite))
}

func (suite *BacktestTradingTestSuite) SetupTest() {
	suite.logger = logger.NewNopLogger()
	suite.runLog = log.NewRunLog("TEST")
}

func (suite *BacktestTradingTestSuite) simulate(capital, rate float64, bars types.PriceSeries, signals types.SignalSeries) (SimulationResult, error) {
	trading := NewBacktestTrading(capital, commission_fee.NewPercentageCommissionFee(rate), suite.runLog, suite.logger)

	return trading.Run(context.Background(), bars, signals)
}

func (suite *BacktestTradingTestSuite) logMessages() []string {
	entries, err := suite.runLog.GetLogs()
	suite.Require().NoError(err)

	messages := make([]string, len(entries))
	for i, entry := range entries {
		messages[i] = entry.Message
	}

	return messages
}

func (suite *BacktestTradingTestSuite) TestRoundTripWithCommission() {
	bars := mocks.FromCloses(100, 100, 110, 110)

	result, err := suite.simulate(1000, 0.01, bars, types.SignalSeries{L, X, H, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.Equal(types.PositionSideLong, trade.Side())
	suite.Equal(bars[1].Date, trade.EntryDate())
	suite.Equal(bars[2].Date, trade.ExitDate())
	suite.Equal(10.0, trade.Quantity())
	suite.Equal(10.0, trade.EntryCommission())
	suite.Equal(11.0, trade.ExitCommission())
	suite.InDelta(79.0, trade.PnL(), 1e-9)

	suite.Equal([]float64{1000, 990, 1079, 1079}, types.EquityValues(result.EquitySeries))
}

func (suite *BacktestTradingTestSuite) TestFillsAtNextOpen() {
	bars := mocks.FromCloses(100, 100, 100, 100)
	bars[1].Open = 95
	bars[2].Open = 105

	result, err := suite.simulate(950, 0, bars, types.SignalSeries{L, X, H, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(95.0, result.Trades[0].EntryPrice())
	suite.Equal(105.0, result.Trades[0].ExitPrice())
	suite.InDelta(100.0, result.Trades[0].PnL(), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestShortRoundTrip() {
	bars := mocks.FromCloses(100, 100, 90, 90)

	result, err := suite.simulate(1000, 0, bars, types.SignalSeries{S, X, H, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.PositionSideShort, result.Trades[0].Side())
	suite.InDelta(100.0, result.Trades[0].PnL(), 1e-9)

	// short proceeds sit in cash, the short position is marked against them
	suite.Equal([]float64{1000, 1000, 1100, 1100}, types.EquityValues(result.EquitySeries))
}

func (suite *BacktestTradingTestSuite) TestInsufficientCapitalSkipsEntry() {
	bars := mocks.Flat(5, 1000)

	result, err := suite.simulate(1, 0, bars, types.SignalSeries{L, H, H, H, H})
	suite.Require().NoError(err)
	suite.Empty(result.Trades)
	suite.Equal([]float64{1, 1, 1, 1, 1}, types.EquityValues(result.EquitySeries))
	suite.Contains(suite.logMessages(), "entry skipped: insufficient capital")
}

func (suite *BacktestTradingTestSuite) TestForceCloseAtLastClose() {
	bars := mocks.FromCloses(10, 10, 12, 15)

	result, err := suite.simulate(100, 0, bars, types.SignalSeries{L, H, H, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(bars[3].Date, result.Trades[0].ExitDate())
	suite.Equal(15.0, result.Trades[0].ExitPrice())
	suite.Equal(150.0, result.EquitySeries[3].PortfolioValue)
}

func (suite *BacktestTradingTestSuite) TestSameDirectionEntryIgnored() {
	bars := mocks.FromCloses(10, 10, 10, 20, 20)

	result, err := suite.simulate(100, 0, bars, types.SignalSeries{L, L, L, X, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(bars[1].Date, result.Trades[0].EntryDate())
	suite.Equal(10.0, result.Trades[0].Quantity())
}

func (suite *BacktestTradingTestSuite) TestOppositeEntryClosesWithoutReversing() {
	bars := mocks.FromCloses(10, 10, 12, 12, 12, 12)

	result, err := suite.simulate(100, 0, bars, types.SignalSeries{L, S, H, S, H, H})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 2)

	suite.Equal(types.PositionSideLong, result.Trades[0].Side())
	suite.Equal(bars[2].Date, result.Trades[0].ExitDate())

	// the second short entry opens from flat
	suite.Equal(types.PositionSideShort, result.Trades[1].Side())
	suite.Equal(bars[4].Date, result.Trades[1].EntryDate())
	suite.Equal(bars[5].Date, result.Trades[1].ExitDate())
}

func (suite *BacktestTradingTestSuite) TestExitWhileFlatIsNoop() {
	result, err := suite.simulate(100, 0, mocks.Flat(4, 10), types.SignalSeries{X, X, H, H})
	suite.Require().NoError(err)
	suite.Empty(result.Trades)
	suite.Empty(suite.logMessages())
}

func (suite *BacktestTradingTestSuite) TestEntryOnLastBarsIsSkipped() {
	bars := mocks.Flat(4, 10)

	result, err := suite.simulate(100, 0, bars, types.SignalSeries{H, H, L, S})
	suite.Require().NoError(err)
	suite.Empty(result.Trades)
	suite.Equal([]string{"entry skipped on the last bar", "signal on the last bar ignored"}, suite.logMessages())
}

func (suite *BacktestTradingTestSuite) TestConservation() {
	bars := mocks.NewDataGenerator(42).Generate(mocks.DefaultConfig())
	signals := types.NewHoldSeries(len(bars))

	pattern := []types.SignalType{L, H, H, X, S, H, L, H, H, S, H, X}
	for i := range signals {
		signals[i] = pattern[i%len(pattern)]
	}

	result, err := suite.simulate(10000, 0.002, bars, signals)
	suite.Require().NoError(err)
	suite.Len(result.EquitySeries, len(bars))

	total := 10000.0
	for _, trade := range result.Trades {
		suite.True(trade.ExitDate().After(trade.EntryDate()))
		total += trade.PnL()
	}

	final := result.EquitySeries[len(result.EquitySeries)-1].PortfolioValue
	suite.InDelta(total, final, 1e-6)
}

func (suite *BacktestTradingTestSuite) TestSignalLengthMismatch() {
	_, err := suite.simulate(100, 0, mocks.Flat(4, 10), types.SignalSeries{H, H})
	suite.Equal(errors.KindStrategyRuntime, errors.KindOf(err))
}

func (suite *BacktestTradingTestSuite) TestCancelledBeforeFirstBar() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trading := NewBacktestTrading(100, commission_fee.NewZeroCommissionFee(), suite.runLog, suite.logger)

	_, err := trading.Run(ctx, mocks.Flat(4, 10), types.NewHoldSeries(4))
	suite.Require().Error(err)
	suite.Equal(errors.KindCancelled, errors.KindOf(err))

	var interrupted *types.InterruptedError
	suite.Require().ErrorAs(err, &interrupted)
	suite.Equal(0, interrupted.Diagnostics.BarsProcessed)
}

// countdownContext reports cancellation once Err has been called more than n times.
type countdownContext struct {
	context.Context
	remaining int
}

func (c *countdownContext) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}

	c.remaining--

	return nil
}

func (suite *BacktestTradingTestSuite) TestCancelledMidRunDiscardsOpenPosition() {
	ctx := &countdownContext{Context: context.Background(), remaining: 5}
	bars := mocks.FromCloses(10, 10, 11, 11, 12, 12, 13, 13)

	trading := NewBacktestTrading(100, commission_fee.NewZeroCommissionFee(), suite.runLog, suite.logger)

	_, err := trading.Run(ctx, bars, types.SignalSeries{L, X, L, H, H, H, H, H})
	suite.Require().Error(err)

	var interrupted *types.InterruptedError
	suite.Require().ErrorAs(err, &interrupted)
	suite.Equal(errors.KindCancelled, errors.KindOf(err))
	suite.Equal(5, interrupted.Diagnostics.BarsProcessed)
	suite.Len(interrupted.Diagnostics.EquitySeries, 5)
	// only the first position completed, the second was discarded
	suite.Len(interrupted.Diagnostics.Trades, 1)
	suite.False(trading.state.Position().IsOpen())
}
