package writer

import (
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Format is the file format a download is written in.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// MarketDataWriter persists the bars of a download. Bars may arrive in any
// order; the file is sorted by symbol and time.
type MarketDataWriter interface {
	// Initialize prepares the writer. Nothing is written to disk before Finalize.
	Initialize() error
	// Write buffers one bar of symbol.
	Write(symbol string, bar types.PriceBar) error
	// Finalize writes the file and returns its path.
	Finalize() (outputPath string, err error)
	// Close releases the writer. Unfinalized bars are dropped.
	Close() error
}

// New returns the writer of format for outputPath. An empty format means Parquet.
func New(format Format, outputPath string, log *logger.Logger) (MarketDataWriter, error) {
	switch format {
	case "", FormatParquet:
		return NewDuckDBWriter(outputPath, log), nil
	case FormatCSV:
		return NewCSVWriter(outputPath), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported output format %q", format)
	}
}

// Extension returns the file extension of format, without the dot.
func (f Format) Extension() string {
	if f == "" {
		return string(FormatParquet)
	}

	return string(f)
}
