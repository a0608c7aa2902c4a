package types

import "time"

type PositionSide string

const (
	PositionSideFlat  PositionSide = "FLAT"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Sign is +1 for long, -1 for short and 0 when flat.
func (s PositionSide) Sign() float64 {
	switch s {
	case PositionSideLong:
		return 1
	case PositionSideShort:
		return -1
	default:
		return 0
	}
}

// Position is the open position of a single simulator run.
type Position struct {
	Side            PositionSide
	Quantity        float64
	EntryPrice      float64
	EntryDate       time.Time
	EntryCommission float64
}

// IsOpen reports whether the position holds any quantity.
func (p Position) IsOpen() bool {
	return p.Side != PositionSideFlat && p.Quantity > 0
}

// MarketValue is the signed value of the position at price.
func (p Position) MarketValue(price float64) float64 {
	return p.Side.Sign() * p.Quantity * price
}
