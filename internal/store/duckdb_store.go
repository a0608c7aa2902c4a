package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const resultsTable = "results"

// MemoryPath opens a store that lives only as long as the process.
const MemoryPath = ":memory:"

// DuckDBStore implements ResultStore on top of a DuckDB database.
// Each result is kept as a JSON payload next to the columns List needs.
type DuckDBStore struct {
	db            *sql.DB
	sq            squirrel.StatementBuilderType
	logger        *logger.Logger
	engineVersion string
	now           func() time.Time
	newID         func() string
}

// NewDuckDBStore opens the database at path, creating it when needed.
// An empty path or MemoryPath opens an in-memory database.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	if path == "" {
		path = MemoryPath
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to create directory for %s", path)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to connect to database", err)
	}

	s := &DuckDBStore{
		db:            db,
		sq:            squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger:        log.Named("store"),
		engineVersion: version.GetVersion(),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// Save implements ResultStore.
func (s *DuckDBStore) Save(ctx context.Context, result types.BacktestResult) (string, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodePersistenceFailed, "failed to marshal result", err)
	}

	resultVersion := result.EngineVersion
	if resultVersion == "" {
		resultVersion = s.engineVersion
	}

	id := s.newID()

	query, args, err := s.sq.
		Insert(resultsTable).
		Columns("id", "created_at", "strategy_id", "strategy_name", "symbol", "engine_version",
			"total_return", "sharpe_ratio", "max_drawdown", "total_trades", "final_value", "payload").
		Values(id, s.now(), result.StrategyID, result.Strategy.Name, result.Symbol, resultVersion,
			result.Metrics.TotalReturn, result.Metrics.SharpeRatio, result.Metrics.MaxDrawdown,
			result.Metrics.TotalTrades, result.Metrics.FinalValue, string(payload)).
		ToSql()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to build insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert result", err)
	}

	s.logger.Debug("Result saved",
		zap.String("id", id),
		zap.String("strategy", result.StrategyID),
	)

	return id, nil
}

// Load implements ResultStore. Results written by a newer engine are rejected.
func (s *DuckDBStore) Load(ctx context.Context, id string) (types.BacktestResult, error) {
	query, args, err := s.sq.
		Select("engine_version", "payload").
		From(resultsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return types.BacktestResult{}, errors.Wrap(errors.ErrCodeInternal, "failed to build select", err)
	}

	var resultVersion, payload string

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&resultVersion, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeResultNotFound, "result %s not found", id)
	}

	if err != nil {
		return types.BacktestResult{}, errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to load result %s", id)
	}

	if err := version.CheckResultCompatibility(s.engineVersion, resultVersion); err != nil {
		return types.BacktestResult{}, err
	}

	var result types.BacktestResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return types.BacktestResult{}, errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to decode result %s", id)
	}

	return result, nil
}

// List implements ResultStore.
func (s *DuckDBStore) List(ctx context.Context) ([]types.ResultSummary, error) {
	query, args, err := s.sq.
		Select("id", "created_at", "payload").
		From(resultsTable).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build select", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to query results", err)
	}
	defer rows.Close()

	summaries := []types.ResultSummary{}

	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			payload   string
			result    types.BacktestResult
		)

		if err := rows.Scan(&id, &createdAt, &payload); err != nil {
			return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to scan result", err)
		}

		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to decode result %s", id)
		}

		summary := types.NewResultSummary(result, nil, createdAt.UTC())
		summary.ID = id
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "error iterating results", err)
	}

	return summaries, nil
}

// Delete implements ResultStore.
func (s *DuckDBStore) Delete(ctx context.Context, id string) error {
	query, args, err := s.sq.
		Delete(resultsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build delete", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to delete result %s", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to read affected rows", err)
	}

	if affected == 0 {
		return errors.Newf(errors.ErrCodeResultNotFound, "result %s not found", id)
	}

	return nil
}

// ExportParquet writes the summary columns of every stored result to a
// Parquet file at path.
func (s *DuckDBStore) ExportParquet(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create directory", err)
	}

	query, _, err := s.sq.
		Select("id", "created_at", "strategy_id", "strategy_name", "symbol", "engine_version",
			"total_return", "sharpe_ratio", "max_drawdown", "total_trades", "final_value").
		From(resultsTable).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build export query", err)
	}

	escaped := strings.ReplaceAll(path, "'", "''")

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET)`, query, escaped))
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to export results to Parquet", err)
	}

	s.logger.Info("Exported results to Parquet file", zap.String("path", path))

	return nil
}

// Close implements ResultStore.
func (s *DuckDBStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP,
			strategy_id TEXT,
			strategy_name TEXT,
			symbol TEXT,
			engine_version TEXT,
			total_return DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			total_trades INTEGER,
			final_value DOUBLE,
			payload TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create results table", err)
	}

	return nil
}
