package types

import (
	"encoding/json"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Trade is a closed position. PnL and return are derived from the entry and
// exit legs when the trade is built and cannot be set independently.
type Trade struct {
	entryDate       time.Time
	exitDate        time.Time
	side            PositionSide
	entryPrice      float64
	exitPrice       float64
	quantity        float64
	entryCommission float64
	exitCommission  float64
	pnl             float64
	returnPct       float64
}

// TradeRecord is the flat form of a Trade used for the trade ledger.
type TradeRecord struct {
	EntryDate       time.Time    `yaml:"entry_date" json:"entry_date" csv:"entry_date"`
	ExitDate        time.Time    `yaml:"exit_date" json:"exit_date" csv:"exit_date"`
	Side            PositionSide `yaml:"side" json:"side" csv:"side"`
	EntryPrice      float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice       float64      `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Quantity        float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	PnL             float64      `yaml:"pnl" json:"pnl" csv:"pnl"`
	ReturnPct       float64      `yaml:"return_pct" json:"return_pct" csv:"return_pct"`
	EntryCommission float64      `yaml:"entry_commission" json:"entry_commission" csv:"entry_commission"`
	ExitCommission  float64      `yaml:"exit_commission" json:"exit_commission" csv:"exit_commission"`
}

// NewTrade closes position at exitPrice on exitDate.
//
//	pnl        = (exit - entry) * quantity * sign - entry commission - exit commission
//	return_pct = pnl / (entry * quantity)
func NewTrade(position Position, exitDate time.Time, exitPrice, exitCommission float64) (Trade, error) {
	if !position.IsOpen() {
		return Trade{}, errors.New(errors.ErrCodeInternal, "cannot close a flat position")
	}

	if !exitDate.After(position.EntryDate) {
		return Trade{}, errors.Newf(errors.ErrCodeInternal,
			"trade exit %s must be after entry %s", exitDate.Format(time.RFC3339), position.EntryDate.Format(time.RFC3339))
	}

	entry := decimal.NewFromFloat(position.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(position.Quantity)
	sign := decimal.NewFromFloat(position.Side.Sign())

	pnl := exit.Sub(entry).Mul(qty).Mul(sign).
		Sub(decimal.NewFromFloat(position.EntryCommission)).
		Sub(decimal.NewFromFloat(exitCommission))

	returnPct := decimal.Zero
	if cost := entry.Mul(qty); !cost.IsZero() {
		returnPct = pnl.Div(cost)
	}

	return Trade{
		entryDate:       position.EntryDate,
		exitDate:        exitDate,
		side:            position.Side,
		entryPrice:      position.EntryPrice,
		exitPrice:       exitPrice,
		quantity:        position.Quantity,
		entryCommission: position.EntryCommission,
		exitCommission:  exitCommission,
		pnl:             pnl.InexactFloat64(),
		returnPct:       returnPct.InexactFloat64(),
	}, nil
}

// TradeFromRecord rebuilds a trade from its flat form. The stored pnl and
// return are ignored and recomputed.
func TradeFromRecord(record TradeRecord) (Trade, error) {
	return NewTrade(Position{
		Side:            record.Side,
		Quantity:        record.Quantity,
		EntryPrice:      record.EntryPrice,
		EntryDate:       record.EntryDate,
		EntryCommission: record.EntryCommission,
	}, record.ExitDate, record.ExitPrice, record.ExitCommission)
}

func (t Trade) EntryDate() time.Time         { return t.entryDate }
func (t Trade) ExitDate() time.Time          { return t.exitDate }
func (t Trade) Side() PositionSide           { return t.side }
func (t Trade) EntryPrice() float64          { return t.entryPrice }
func (t Trade) ExitPrice() float64           { return t.exitPrice }
func (t Trade) Quantity() float64            { return t.quantity }
func (t Trade) EntryCommission() float64     { return t.entryCommission }
func (t Trade) ExitCommission() float64      { return t.exitCommission }
func (t Trade) PnL() float64                 { return t.pnl }
func (t Trade) ReturnPct() float64           { return t.returnPct }
func (t Trade) TotalCommission() float64     { return t.entryCommission + t.exitCommission }
func (t Trade) HoldingPeriod() time.Duration { return t.exitDate.Sub(t.entryDate) }

// Record returns the flat ledger row of the trade.
func (t Trade) Record() TradeRecord {
	return TradeRecord{
		EntryDate:       t.entryDate,
		ExitDate:        t.exitDate,
		Side:            t.side,
		EntryPrice:      t.entryPrice,
		ExitPrice:       t.exitPrice,
		Quantity:        t.quantity,
		PnL:             t.pnl,
		ReturnPct:       t.returnPct,
		EntryCommission: t.entryCommission,
		ExitCommission:  t.exitCommission,
	}
}

func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Record())
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var record TradeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	trade, err := TradeFromRecord(record)
	if err != nil {
		return err
	}

	*t = trade

	return nil
}

func (t Trade) MarshalYAML() (any, error) {
	return t.Record(), nil
}

func (t *Trade) UnmarshalYAML(value *yaml.Node) error {
	var record TradeRecord
	if err := value.Decode(&record); err != nil {
		return err
	}

	trade, err := TradeFromRecord(record)
	if err != nil {
		return err
	}

	*t = trade

	return nil
}
