package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// BacktestState is the account of a single simulator run: cash, the one open
// position, the closed trades and the equity curve. It is owned by one run
// and never shared.
type BacktestState struct {
	cash     decimal.Decimal
	position types.Position
	trades   []types.Trade
	equity   []types.EquityPoint
}

func NewBacktestState(initialCapital float64) *BacktestState {
	return &BacktestState{
		cash:     decimal.NewFromFloat(initialCapital),
		position: types.Position{Side: types.PositionSideFlat},
	}
}

// Cash is the cash balance. Short sale proceeds are included.
func (b *BacktestState) Cash() float64 {
	return b.cash.InexactFloat64()
}

func (b *BacktestState) Position() types.Position {
	return b.position
}

// Open opens a position of side. Opening a long pays price*quantity plus the
// commission, opening a short receives price*quantity minus the commission.
func (b *BacktestState) Open(side types.PositionSide, date time.Time, price, quantity, commission float64) error {
	if b.position.IsOpen() {
		return errors.Newf(errors.ErrCodeInternal, "cannot open a %s position while %s", side, b.position.Side)
	}

	if side == types.PositionSideFlat || quantity <= 0 {
		return errors.Newf(errors.ErrCodeInternal, "invalid %s position of quantity %v", side, quantity)
	}

	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity))
	fee := decimal.NewFromFloat(commission)

	switch side {
	case types.PositionSideLong:
		b.cash = b.cash.Sub(notional).Sub(fee)
	case types.PositionSideShort:
		b.cash = b.cash.Add(notional).Sub(fee)
	}

	b.position = types.Position{
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      price,
		EntryDate:       date,
		EntryCommission: commission,
	}

	return nil
}

// Close closes the open position and records the trade.
func (b *BacktestState) Close(date time.Time, price, commission float64) (types.Trade, error) {
	trade, err := types.NewTrade(b.position, date, price, commission)
	if err != nil {
		return types.Trade{}, err
	}

	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(b.position.Quantity))
	fee := decimal.NewFromFloat(commission)

	switch b.position.Side {
	case types.PositionSideLong:
		b.cash = b.cash.Add(notional).Sub(fee)
	case types.PositionSideShort:
		b.cash = b.cash.Sub(notional).Sub(fee)
	}

	b.position = types.Position{Side: types.PositionSideFlat}
	b.trades = append(b.trades, trade)

	return trade, nil
}

// Discard drops the open position without a trade. Used when a run is interrupted.
func (b *BacktestState) Discard() {
	b.position = types.Position{Side: types.PositionSideFlat}
}

// PortfolioValue is cash plus the signed market value of the open position at price.
func (b *BacktestState) PortfolioValue(price float64) float64 {
	value := b.cash

	if b.position.IsOpen() {
		value = value.Add(decimal.NewFromFloat(b.position.Quantity).
			Mul(decimal.NewFromFloat(price)).
			Mul(decimal.NewFromFloat(b.position.Side.Sign())))
	}

	return value.InexactFloat64()
}

// Mark appends the portfolio value at the close of a bar to the equity curve.
func (b *BacktestState) Mark(date time.Time, price float64) types.EquityPoint {
	point := types.EquityPoint{Date: date, PortfolioValue: b.PortfolioValue(price)}
	b.equity = append(b.equity, point)

	return point
}

func (b *BacktestState) Trades() []types.Trade {
	trades := make([]types.Trade, len(b.trades))
	copy(trades, b.trades)

	return trades
}

func (b *BacktestState) EquitySeries() []types.EquityPoint {
	equity := make([]types.EquityPoint, len(b.equity))
	copy(equity, b.equity)

	return equity
}
