package log

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Log is the interface for storing per-bar run events.
type Log interface {
	// Log stores a log entry.
	Log(entry types.LogEntry) error
	// GetLogs retrieves all stored log entries in insertion order.
	GetLogs() ([]types.LogEntry, error)
}

// RunLog keeps the events of one simulator run in memory.
// A run owns its RunLog exclusively, so it is not safe for concurrent use.
type RunLog struct {
	symbol  string
	entries []types.LogEntry
}

// NewRunLog creates an empty log for symbol.
func NewRunLog(symbol string) *RunLog {
	return &RunLog{symbol: symbol}
}

func (l *RunLog) Log(entry types.LogEntry) error {
	if entry.Symbol == "" {
		entry.Symbol = l.symbol
	}

	l.entries = append(l.entries, entry)

	return nil
}

// Record is a shorthand for Log with a bar date, level and message.
func (l *RunLog) Record(date time.Time, level types.LogLevel, message string, fields map[string]string) {
	_ = l.Log(types.LogEntry{
		Timestamp: date,
		Symbol:    l.symbol,
		Level:     level,
		Message:   message,
		Fields:    fields,
	})
}

func (l *RunLog) GetLogs() ([]types.LogEntry, error) {
	entries := make([]types.LogEntry, len(l.entries))
	copy(entries, l.entries)

	return entries, nil
}
