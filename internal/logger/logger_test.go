package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestLevels() {
	tests := []struct {
		name     string
		build    func() (*Logger, error)
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{"production default", NewLogger, zapcore.InfoLevel, zapcore.DebugLevel},
		{"production debug", func() (*Logger, error) { return NewLoggerWithLevel(zapcore.DebugLevel) }, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"console warn", func() (*Logger, error) { return NewConsoleLogger(zapcore.WarnLevel) }, zapcore.WarnLevel, zapcore.InfoLevel},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			log, err := tc.build()
			suite.Require().NoError(err)
			suite.True(log.Core().Enabled(tc.enabled))
			suite.False(log.Core().Enabled(tc.disabled))
		})
	}
}

func (suite *LoggerTestSuite) TestNamedScopesEntries() {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &Logger{Logger: zap.New(core)}

	log.Named("engine").Named("run").Info("started", zap.String("strategy", "ma_crossover"))

	entries := logs.All()
	suite.Require().Len(entries, 1)
	suite.Equal("engine.run", entries[0].LoggerName)
	suite.Equal("ma_crossover", entries[0].ContextMap()["strategy"])
}

func (suite *LoggerTestSuite) TestNilLoggers() {
	var empty *Logger
	suite.NotNil(empty.Named("engine").Logger)

	suite.NoError((&Logger{}).Sync())
	suite.NoError(NewNopLogger().Named("store").Sync())
}
