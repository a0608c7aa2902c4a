package writer

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type csvRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
	at     time.Time
}

// CSVWriter buffers bars in memory and writes them as a CSV file with a
// date,symbol,open,high,low,close,volume header on Finalize.
type CSVWriter struct {
	outputPath  string
	rows        []csvRow
	initialized bool
}

func NewCSVWriter(outputPath string) *CSVWriter {
	return &CSVWriter{outputPath: outputPath}
}

func (w *CSVWriter) Initialize() error {
	w.rows = nil
	w.initialized = true

	return nil
}

func (w *CSVWriter) Write(symbol string, bar types.PriceBar) error {
	if !w.initialized {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	w.rows = append(w.rows, csvRow{
		Date:   bar.Date.UTC().Format(time.RFC3339),
		Symbol: symbol,
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: bar.Volume,
		at:     bar.Date,
	})

	return nil
}

func (w *CSVWriter) Finalize() (path string, err error) {
	if !w.initialized {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	sort.SliceStable(w.rows, func(i, j int) bool {
		if w.rows[i].Symbol != w.rows[j].Symbol {
			return w.rows[i].Symbol < w.rows[j].Symbol
		}

		return w.rows[i].at.Before(w.rows[j].at)
	})

	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create output directory", err)
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create CSV file", err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to close CSV file", cerr)
		}
	}()

	if err := gocsv.Marshal(w.rows, file); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write CSV", err)
	}

	w.initialized = false

	return w.outputPath, nil
}

func (w *CSVWriter) Close() error {
	w.rows = nil
	w.initialized = false

	return nil
}
