package types

type StrategyType string

const (
	StrategyTypeTechnical StrategyType = "technical"
	StrategyTypeModel     StrategyType = "model"
	StrategyTypeComposite StrategyType = "composite"
)

// StrategyInfo describes a configured strategy instance.
type StrategyInfo struct {
	Name        string         `yaml:"name" json:"name"`
	Type        StrategyType   `yaml:"type" json:"type"`
	Description string         `yaml:"description" json:"description"`
	Parameters  map[string]any `yaml:"parameters" json:"parameters"`
}

// StrategyConfig selects a strategy variant by name and carries its raw parameters.
type StrategyConfig struct {
	// ID identifies the configuration inside a comparison. Defaults to Name.
	ID         string         `yaml:"id" json:"id"`
	Name       string         `yaml:"name" json:"name" validate:"required"`
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
}

// Identifier returns the ID, falling back to the strategy name.
func (c StrategyConfig) Identifier() string {
	if c.ID != "" {
		return c.ID
	}

	return c.Name
}
