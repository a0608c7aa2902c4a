package provider

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// csvDateLayouts are tried in order when parsing the date column.
var csvDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	time.DateOnly,
}

type csvBar struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol,omitempty"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// CSVClient reads bars from a CSV file with a header row of
// date,open,high,low,close,volume and an optional symbol column.
type CSVClient struct {
	path string
}

func NewCSVClient(path string) *CSVClient {
	return &CSVClient{path: path}
}

func (c *CSVClient) Name() string {
	return string(ProviderCSV)
}

// Fetch parses the whole file and returns the bars of ticker between start and
// end inclusive. Rows without a symbol match any ticker.
func (c *CSVClient) Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	file, err := os.Open(c.path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "market data file %s is not readable", c.path)
	}
	defer file.Close()

	bars, known, err := ReadCSV(file, ticker)
	if err != nil {
		return nil, err
	}

	if err := errors.FromContext(ctx, "csv read interrupted"); err != nil {
		return nil, err
	}

	if !known {
		return nil, errors.Newf(errors.ErrCodeUnknownTicker, "unknown ticker %s in %s", ticker, c.path)
	}

	series := normalize(bars, start, end)
	if len(series) == 0 {
		return nil, emptyRange(ticker, start, end)
	}

	return series, nil
}

// ReadCSV decodes the rows of r that belong to ticker. known reports whether
// any row matched the ticker at all.
func ReadCSV(r io.Reader, ticker string) (bars []types.PriceBar, known bool, err error) {
	var rows []*csvBar
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to parse CSV", err)
	}

	for i, row := range rows {
		if row.Symbol != "" && !strings.EqualFold(row.Symbol, ticker) {
			continue
		}

		known = true

		date, err := parseCSVDate(row.Date)
		if err != nil {
			return nil, false, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "row %d has an invalid date", i+1)
		}

		bars = append(bars, types.PriceBar{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	return bars, known, nil
}

func parseCSVDate(value string) (time.Time, error) {
	var err error

	for _, layout := range csvDateLayouts {
		var date time.Time

		date, err = time.Parse(layout, strings.TrimSpace(value))
		if err == nil {
			return date.UTC(), nil
		}
	}

	return time.Time{}, err
}
