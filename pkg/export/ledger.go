package export

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// WriteTradeLedger writes one CSV row per trade with a header row of the
// TradeRecord field names. An empty ledger is just the header.
func WriteTradeLedger(w io.Writer, trades []types.Trade) error {
	records := make([]types.TradeRecord, len(trades))
	for i, trade := range trades {
		records[i] = trade.Record()
	}

	if err := gocsv.Marshal(records, w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write trade ledger", err)
	}

	return nil
}

// ReadTradeLedger parses a ledger written by WriteTradeLedger. The pnl and
// return columns are recomputed from the legs of each row.
func ReadTradeLedger(r io.Reader) ([]types.Trade, error) {
	var records []types.TradeRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSeries, "failed to parse trade ledger", err)
	}

	trades := make([]types.Trade, 0, len(records))

	for i, record := range records {
		trade, err := types.TradeFromRecord(record)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidSeries, err, "trade ledger row %d", i+1)
		}

		trades = append(trades, trade)
	}

	return trades, nil
}

// WriteEquityCurve writes the equity series as date,portfolio_value rows.
func WriteEquityCurve(w io.Writer, points []types.EquityPoint) error {
	if err := gocsv.Marshal(points, w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write equity curve", err)
	}

	return nil
}
