package engine

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxConcurrency = 4
	DefaultInitialCapital = 10000
)

type BacktestEngineV1Config struct {
	Symbol         string                     `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Instrument label used in results and logs"`
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for every run,exclusiveMinimum=0"`
	CommissionRate float64                    `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Fraction of the traded notional charged per fill,minimum=0,exclusiveMaximum=1"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" validate:"omitempty,oneof=percentage interactive_broker zero_commission" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	BarsPerYear    int                        `yaml:"bars_per_year" json:"bars_per_year" validate:"gte=0" jsonschema:"title=Bars Per Year,description=Annualization factor of the metrics,default=252"`
	MaxConcurrency int                        `yaml:"max_concurrency" json:"max_concurrency" validate:"gte=0" jsonschema:"title=Max Concurrency,description=Maximum number of runs of a comparison executed at once,default=4"`
	RunTimeout     time.Duration              `yaml:"run_timeout" json:"run_timeout" validate:"gte=0" jsonschema:"title=Run Timeout,description=Timeout of a single run. Zero disables it"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		Symbol         string                `yaml:"symbol"`
		InitialCapital float64               `yaml:"initial_capital"`
		CommissionRate float64               `yaml:"commission_rate"`
		Broker         commission_fee.Broker `yaml:"broker"`
		BarsPerYear    int                   `yaml:"bars_per_year"`
		MaxConcurrency int                   `yaml:"max_concurrency"`
		RunTimeout     time.Duration         `yaml:"run_timeout"`
		StartTime      *time.Time            `yaml:"start_time"`
		EndTime        *time.Time            `yaml:"end_time"`
	}

	defaults := EmptyConfig()
	config := Config{
		InitialCapital: defaults.InitialCapital,
		Broker:         defaults.Broker,
		BarsPerYear:    defaults.BarsPerYear,
		MaxConcurrency: defaults.MaxConcurrency,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	c.Symbol = config.Symbol
	c.InitialCapital = config.InitialCapital
	c.CommissionRate = config.CommissionRate
	c.Broker = config.Broker
	c.BarsPerYear = config.BarsPerYear
	c.MaxConcurrency = config.MaxConcurrency
	c.RunTimeout = config.RunTimeout
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration. Every failure is a configuration error.
func (c BacktestEngineV1Config) Validate() error {
	if c.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %v", c.InitialCapital)
	}

	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return errors.Newf(errors.ErrCodeInvalidCommission, "commission rate must be in [0, 1), got %v", c.CommissionRate)
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine configuration", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.EndTime.Unwrap().After(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_time must be after start_time")
	}

	return nil
}

// RunParams returns the per call parameters described by the configuration.
func (c BacktestEngineV1Config) RunParams() engine.RunParams {
	return engine.RunParams{
		Symbol:         c.Symbol,
		InitialCapital: c.InitialCapital,
		CommissionRate: c.CommissionRate,
	}
}

// Window returns the bars of series inside the configured time range.
func (c BacktestEngineV1Config) Window(series types.PriceSeries) types.PriceSeries {
	window := make(types.PriceSeries, 0, len(series))

	for _, bar := range series {
		if c.StartTime.IsSome() && bar.Date.Before(c.StartTime.Unwrap()) {
			continue
		}

		if c.EndTime.IsSome() && bar.Date.After(c.EndTime.Unwrap()) {
			continue
		}

		window = append(window, bar)
	}

	return window
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t.String() == "time.Duration" {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration such as 30s or 5m",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// LoadConfig reads a YAML configuration file and validates it.
func LoadConfig(path string) (BacktestEngineV1Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestEngineV1Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (BacktestEngineV1Config, error) {
	config := EmptyConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Broker = broker
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: DefaultInitialCapital,
		Broker:         commission_fee.BrokerPercentage,
		BarsPerYear:    metrics.DefaultBarsPerYear,
		MaxConcurrency: DefaultMaxConcurrency,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}
