package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(10000.0, config.InitialCapital)
	suite.Equal(0.0, config.CommissionRate)
	suite.Equal(commission_fee.BrokerPercentage, config.Broker)
	suite.Equal(252, config.BarsPerYear)
	suite.Equal(DefaultMaxConcurrency, config.MaxConcurrency)
	suite.Equal(time.Duration(0), config.RunTimeout)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestTestConfig() {
	startTime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	config := TestConfig(startTime, endTime, commission_fee.BrokerZero)

	suite.Equal(10000.0, config.InitialCapital)
	suite.Equal(commission_fee.BrokerZero, config.Broker)
	suite.Equal(startTime, config.StartTime.Unwrap())
	suite.Equal(endTime, config.EndTime.Unwrap())
}

func (suite *ConfigTestSuite) TestParseConfig() {
	config, err := ParseConfig([]byte(`
symbol: AAPL
initial_capital: 25000
commission_rate: 0.001
max_concurrency: 8
run_timeout: 30s
start_time: 2024-01-01T00:00:00Z
`))
	suite.Require().NoError(err)

	suite.Equal("AAPL", config.Symbol)
	suite.Equal(25000.0, config.InitialCapital)
	suite.Equal(0.001, config.CommissionRate)
	suite.Equal(8, config.MaxConcurrency)
	suite.Equal(30*time.Second, config.RunTimeout)
	// omitted fields keep their defaults
	suite.Equal(commission_fee.BrokerPercentage, config.Broker)
	suite.Equal(252, config.BarsPerYear)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap())
	suite.True(config.EndTime.IsNone())

	params := config.RunParams()
	suite.Equal("AAPL", params.Symbol)
	suite.Equal(25000.0, params.InitialCapital)
	suite.Equal(0.001, params.CommissionRate)
}

func (suite *ConfigTestSuite) TestUnmarshalIntoStruct() {
	var config BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal([]byte("broker: interactive_broker"), &config))

	suite.Equal(commission_fee.BrokerInteractiveBroker, config.Broker)
	suite.Equal(10000.0, config.InitialCapital)
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name   string
		modify func(c *BacktestEngineV1Config)
		code   errors.ErrorCode
	}{
		{"zero capital", func(c *BacktestEngineV1Config) { c.InitialCapital = 0 }, errors.ErrCodeInvalidCapital},
		{"negative commission", func(c *BacktestEngineV1Config) { c.CommissionRate = -0.01 }, errors.ErrCodeInvalidCommission},
		{"full commission", func(c *BacktestEngineV1Config) { c.CommissionRate = 1 }, errors.ErrCodeInvalidCommission},
		{"unknown broker", func(c *BacktestEngineV1Config) { c.Broker = "robinhood" }, errors.ErrCodeInvalidConfiguration},
		{"negative timeout", func(c *BacktestEngineV1Config) { c.RunTimeout = -time.Second }, errors.ErrCodeInvalidConfiguration},
		{"end before start", func(c *BacktestEngineV1Config) {
			c.StartTime = optional.Some(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
			c.EndTime = optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		}, errors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := EmptyConfig()
			tc.modify(&config)

			err := config.Validate()
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code), err.Error())
			suite.Equal(errors.KindConfiguration, errors.KindOf(err))
		})
	}
}

func (suite *ConfigTestSuite) TestParseConfigRejectsInvalidValues() {
	_, err := ParseConfig([]byte("initial_capital: -5"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCapital))

	_, err = ParseConfig([]byte("initial_capital: [1, 2]"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadConfig() {
	path := filepath.Join(suite.T().TempDir(), "backtest.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("symbol: SPY\ncommission_rate: 0.002\n"), 0o600))

	config, err := LoadConfig(path)
	suite.Require().NoError(err)
	suite.Equal("SPY", config.Symbol)
	suite.Equal(0.002, config.CommissionRate)

	_, err = LoadConfig(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))
}

func (suite *ConfigTestSuite) TestWindow() {
	bars := mocks.Flat(10, 100)
	config := TestConfig(bars[2].Date, bars[5].Date, commission_fee.BrokerZero)

	window := config.Window(bars)
	suite.Require().Len(window, 4)
	suite.Equal(bars[2].Date, window[0].Date)
	suite.Equal(bars[5].Date, window[3].Date)

	suite.Len(EmptyConfig().Window(bars), 10)
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := &BacktestEngineV1Config{}
	schema, err := config.GenerateSchema()

	suite.NoError(err)
	suite.NotNil(schema)
	suite.Equal("backtest-engine-v1-config", schema.Title)
	suite.Equal("Configuration schema for BacktestEngineV1", schema.Description)
	suite.Equal("http://json-schema.org/draft-07/schema#", schema.Version)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := &BacktestEngineV1Config{}
	schemaJSON, err := config.GenerateSchemaJSON()

	suite.NoError(err)
	suite.NotEmpty(schemaJSON)

	var schemaMap map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schemaMap))

	properties, ok := schemaMap["properties"].(map[string]any)
	suite.Require().True(ok)

	for _, field := range []string{"initial_capital", "commission_rate", "broker", "run_timeout", "start_time", "end_time"} {
		suite.Contains(properties, field)
	}

	broker, ok := properties["broker"].(map[string]any)
	suite.Require().True(ok)
	suite.Len(broker["enum"], 3)

	startTime, ok := properties["start_time"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("date-time", startTime["format"])
}
