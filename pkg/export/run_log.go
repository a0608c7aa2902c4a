package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// LogsFile holds the run log of a bundle.
const LogsFile = "logs.parquet"

// WriteRunLog stores entries in a Parquet file at path, in order. The fields
// of an entry are kept as a JSON object.
func WriteRunLog(path string, entries []types.LogEntry) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE logs (
			id INTEGER PRIMARY KEY,
			timestamp TIMESTAMP,
			symbol TEXT,
			level TEXT,
			message TEXT,
			fields TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create logs table", err)
	}

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).RunWith(db)

	for i, entry := range entries {
		var fields string

		if len(entry.Fields) > 0 {
			data, err := json.Marshal(entry.Fields)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, "failed to marshal log fields", err)
			}

			fields = string(data)
		}

		_, err := sq.Insert("logs").
			Columns("id", "timestamp", "symbol", "level", "message", "fields").
			Values(i, entry.Timestamp, entry.Symbol, string(entry.Level), entry.Message, fields).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to insert log entry", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create directory for %s", path)
	}

	_, err = db.Exec(fmt.Sprintf(`COPY logs TO '%s' (FORMAT PARQUET)`, quote(path)))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to export logs to Parquet", err)
	}

	return nil
}

// ReadRunLog loads the entries written by WriteRunLog.
func ReadRunLog(path string) ([]types.LogEntry, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Select("timestamp", "symbol", "level", "message", "fields").
		From(fmt.Sprintf("read_parquet('%s')", quote(path))).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build query", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidSeries, err, "failed to read run log %s", path)
	}
	defer rows.Close()

	var entries []types.LogEntry

	for rows.Next() {
		var (
			entry  types.LogEntry
			level  string
			fields sql.NullString
		)

		if err := rows.Scan(&entry.Timestamp, &entry.Symbol, &level, &entry.Message, &fields); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSeries, "failed to scan log entry", err)
		}

		entry.Timestamp = entry.Timestamp.UTC()
		entry.Level = types.LogLevel(level)

		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &entry.Fields); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidSeries, "failed to decode log fields", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSeries, "error iterating log entries", err)
	}

	return entries, nil
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
