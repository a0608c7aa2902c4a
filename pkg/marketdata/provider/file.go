package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// FileClient reads bars from a Parquet or CSV file with DuckDB.
// The file needs a time (or date) column and OHLCV columns. When it has a
// symbol column the ticker selects the rows, otherwise the file is taken to
// hold a single instrument.
type FileClient struct {
	path   string
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewFileClient opens an in-memory DuckDB database for reading path.
func NewFileClient(path string, log *logger.Logger) (*FileClient, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "market data file %s is not readable", path)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open DuckDB connection", err)
	}

	return &FileClient{
		path:   path,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: log.Named("file"),
	}, nil
}

func (c *FileClient) Name() string {
	return string(ProviderFile)
}

// Fetch returns the bars of ticker between start and end inclusive.
func (c *FileClient) Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	source := c.source()

	columns, err := c.columns(ctx, source)
	if err != nil {
		return nil, err
	}

	timeColumn := "time"
	if !slices.Contains(columns, timeColumn) {
		timeColumn = "date"
	}

	for _, required := range []string{timeColumn, "open", "high", "low", "close", "volume"} {
		if !slices.Contains(columns, required) {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "%s has no %s column", c.path, required)
		}
	}

	hasSymbol := slices.Contains(columns, "symbol")
	if hasSymbol {
		if err := c.checkTicker(ctx, source, ticker); err != nil {
			return nil, err
		}
	}

	query := c.sq.
		Select(fmt.Sprintf("CAST(%s AS TIMESTAMP)", timeColumn), "open", "high", "low", "close", "volume").
		From(source).
		Where(squirrel.GtOrEq{timeColumn: start}).
		Where(squirrel.LtOrEq{timeColumn: end}).
		OrderBy(timeColumn + " ASC")

	if hasSymbol {
		query = query.Where(squirrel.Eq{"symbol": ticker})
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build query", err)
	}

	rows, err := c.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to query %s", c.path)
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar
		if err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to scan bar", err)
		}

		bar.Date = bar.Date.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "error iterating bars", err)
	}

	series := normalize(bars, start, end)
	if len(series) == 0 {
		return nil, emptyRange(ticker, start, end)
	}

	c.logger.Debug("Read bars from file",
		zap.String("path", c.path),
		zap.String("ticker", ticker),
		zap.Int("bars", len(series)),
	)

	return series, nil
}

// Close releases the DuckDB connection.
func (c *FileClient) Close() error {
	return c.db.Close()
}

// source is the table function reading the file.
func (c *FileClient) source() string {
	escaped := strings.ReplaceAll(c.path, "'", "''")

	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", escaped)
	default:
		return fmt.Sprintf("read_parquet('%s')", escaped)
	}
}

func (c *FileClient) columns(ctx context.Context, source string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", source))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to read %s", c.path)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to read columns of %s", c.path)
	}

	for i, column := range columns {
		columns[i] = strings.ToLower(column)
	}

	return columns, nil
}

func (c *FileClient) checkTicker(ctx context.Context, source, ticker string) error {
	query, args, err := c.sq.
		Select("COUNT(*)").
		From(source).
		Where(squirrel.Eq{"symbol": ticker}).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build query", err)
	}

	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to query %s", c.path)
	}

	if count == 0 {
		return errors.Newf(errors.ErrCodeUnknownTicker, "unknown ticker %s in %s", ticker, c.path)
	}

	return nil
}
