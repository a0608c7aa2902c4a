package engine

import (
	"context"
	"math"
	"strconv"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// SimulationResult is the output of a completed simulation.
type SimulationResult struct {
	EquitySeries []types.EquityPoint
	Trades       []types.Trade
}

// BacktestTrading replays a signal series over the bars of one run.
//
// The signal of bar i is filled at the open of bar i+1. An EXIT or an entry in
// the opposite direction closes the open position; an entry in the direction
// of the open position is ignored. A position still open after the last bar
// is closed at the last close.
type BacktestTrading struct {
	state      *BacktestState
	commission commission_fee.CommissionFee
	runLog     *log.RunLog
	logger     *logger.Logger
}

func NewBacktestTrading(
	initialCapital float64,
	commission commission_fee.CommissionFee,
	runLog *log.RunLog,
	logger *logger.Logger,
) *BacktestTrading {
	if runLog == nil {
		runLog = log.NewRunLog("")
	}

	return &BacktestTrading{
		state:      NewBacktestState(initialCapital),
		commission: commission,
		runLog:     runLog,
		logger:     logger.Named("simulator"),
	}
}

// Run simulates bars against signals. ctx is checked before every bar; an
// interrupted run discards its open position and returns a
// *types.InterruptedError carrying what had been simulated so far.
func (b *BacktestTrading) Run(ctx context.Context, bars types.PriceSeries, signals types.SignalSeries) (SimulationResult, error) {
	if err := signals.Validate(len(bars)); err != nil {
		return SimulationResult{}, err
	}

	last := len(bars) - 1

	for i, bar := range bars {
		if err := errors.FromContext(ctx, "simulation interrupted"); err != nil {
			b.state.Discard()

			return SimulationResult{}, &types.InterruptedError{
				Err: err,
				Diagnostics: types.RunDiagnostics{
					BarsProcessed: i,
					EquitySeries:  b.state.EquitySeries(),
					Trades:        b.state.Trades(),
				},
			}
		}

		if i > 0 {
			if err := b.fill(i, bars, signals[i-1]); err != nil {
				return SimulationResult{}, err
			}
		}

		if i == last {
			if signals[i] != types.SignalTypeHold {
				b.runLog.Record(bar.Date, types.LogLevelInfo, "signal on the last bar ignored", map[string]string{
					"signal": string(signals[i]),
				})
			}

			if b.state.Position().IsOpen() {
				if err := b.close(bar, bar.Close, "end of series"); err != nil {
					return SimulationResult{}, err
				}
			}
		}

		b.state.Mark(bar.Date, bar.Close)
	}

	return SimulationResult{
		EquitySeries: b.state.EquitySeries(),
		Trades:       b.state.Trades(),
	}, nil
}

// fill applies the signal of bar i-1 at the open of bar i.
func (b *BacktestTrading) fill(i int, bars types.PriceSeries, signal types.SignalType) error {
	bar := bars[i]
	position := b.state.Position()

	switch {
	case signal == types.SignalTypeHold:
		return nil
	case signal == types.SignalTypeExit:
		if !position.IsOpen() {
			return nil
		}

		return b.close(bar, bar.Open, "exit signal")
	case position.IsOpen() && signal.Side() == position.Side:
		return nil
	case position.IsOpen():
		return b.close(bar, bar.Open, "opposite entry signal")
	default:
		return b.open(i, bars, signal)
	}
}

func (b *BacktestTrading) open(i int, bars types.PriceSeries, signal types.SignalType) error {
	bar := bars[i]
	side := signal.Side()

	// the position would be opened and force closed on the same bar
	if i == len(bars)-1 {
		b.runLog.Record(bar.Date, types.LogLevelInfo, "entry skipped on the last bar", map[string]string{
			"signal": string(signal),
		})

		return nil
	}

	cash := b.state.Cash()
	quantity := 0.0

	if cash > 0 {
		quantity = math.Floor(cash / bar.Open)
	}

	if quantity < 1 {
		b.runLog.Record(bar.Date, types.LogLevelWarn, "entry skipped: insufficient capital", map[string]string{
			"signal": string(signal),
			"cash":   formatFloat(cash),
			"price":  formatFloat(bar.Open),
		})

		return nil
	}

	commission := b.commission.Calculate(bar.Open, quantity)
	if err := b.state.Open(side, bar.Date, bar.Open, quantity, commission); err != nil {
		return err
	}

	b.runLog.Record(bar.Date, types.LogLevelInfo, "position opened", map[string]string{
		"side":       string(side),
		"price":      formatFloat(bar.Open),
		"quantity":   formatFloat(quantity),
		"commission": formatFloat(commission),
	})

	b.logger.Debug("Position opened",
		zap.String("side", string(side)),
		zap.Time("date", bar.Date),
		zap.Float64("price", bar.Open),
		zap.Float64("quantity", quantity),
	)

	return nil
}

func (b *BacktestTrading) close(bar types.PriceBar, price float64, reason string) error {
	quantity := b.state.Position().Quantity
	commission := b.commission.Calculate(price, quantity)

	trade, err := b.state.Close(bar.Date, price, commission)
	if err != nil {
		return err
	}

	b.runLog.Record(bar.Date, types.LogLevelInfo, "position closed", map[string]string{
		"reason":     reason,
		"side":       string(trade.Side()),
		"price":      formatFloat(price),
		"quantity":   formatFloat(quantity),
		"commission": formatFloat(commission),
		"pnl":        formatFloat(trade.PnL()),
	})

	b.logger.Debug("Position closed",
		zap.String("reason", reason),
		zap.Time("date", bar.Date),
		zap.Float64("price", price),
		zap.Float64("pnl", trade.PnL()),
	)

	return nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
