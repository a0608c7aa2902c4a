package types

import "time"

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is one per-bar event recorded during a run.
type LogEntry struct {
	// Timestamp is the date of the bar the event belongs to.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol is the instrument being replayed.
	Symbol  string            `yaml:"symbol" json:"symbol"`
	Level   LogLevel          `yaml:"level" json:"level"`
	Message string            `yaml:"message" json:"message"`
	Fields  map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}
