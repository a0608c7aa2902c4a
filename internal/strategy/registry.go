package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/model"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/strategy"
)

// Factory builds a validated strategy from raw parameters.
type Factory func(registry *Registry, parameters map[string]any) (Strategy, error)

// Definition is one catalog entry of the registry.
type Definition struct {
	Name        string
	Type        types.StrategyType
	Description string
	// Defaults is the params struct with default values, used for the schema.
	Defaults any
	Factory  Factory
}

// CatalogEntry describes a registered strategy variant.
type CatalogEntry struct {
	Name        string             `yaml:"name" json:"name"`
	Type        types.StrategyType `yaml:"type" json:"type"`
	Description string             `yaml:"description" json:"description"`
	Defaults    map[string]any     `yaml:"defaults" json:"defaults"`
}

// NewDefinition builds a Definition for a typed params struct. Raw parameters
// are overlaid on defaults, then the constructed strategy is validated.
func NewDefinition[P any](
	name string,
	strategyType types.StrategyType,
	description string,
	defaults P,
	construct func(registry *Registry, params P) (Strategy, error),
) Definition {
	return Definition{
		Name:        name,
		Type:        strategyType,
		Description: description,
		Defaults:    defaults,
		Factory: func(registry *Registry, parameters map[string]any) (Strategy, error) {
			params := defaults
			if err := decodeParams(parameters, &params); err != nil {
				return nil, err
			}

			s, err := construct(registry, params)
			if err != nil {
				return nil, err
			}

			if err := s.Validate(); err != nil {
				return nil, err
			}

			return s, nil
		},
	}
}

// Registry is the catalog of strategy variants. It is constructed explicitly
// and handed to the engine.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
	models      *model.Registry
}

// NewRegistry creates an empty registry. models resolves predictors for
// model driven strategies and may be nil.
func NewRegistry(models *model.Registry) *Registry {
	if models == nil {
		models = model.NewRegistry()
	}

	return &Registry{
		definitions: make(map[string]Definition),
		models:      models,
	}
}

// NewDefaultRegistry creates a registry with every built-in variant.
func NewDefaultRegistry(models *model.Registry) *Registry {
	registry := NewRegistry(models)

	for _, definition := range builtinDefinitions() {
		_ = registry.Register(definition)
	}

	return registry
}

func builtinDefinitions() []Definition {
	return []Definition{
		NewDefinition(MACrossoverName, types.StrategyTypeTechnical,
			"Long when the fast moving average crosses above the slow one",
			DefaultMACrossoverParams(),
			func(_ *Registry, p MACrossoverParams) (Strategy, error) { return NewMACrossover(p), nil }),
		NewDefinition(BollingerBandsName, types.StrategyTypeTechnical,
			"Long at the lower Bollinger band, exit at the upper band",
			DefaultBollingerBandsParams(),
			func(_ *Registry, p BollingerBandsParams) (Strategy, error) { return NewBollingerReversion(p), nil }),
		NewDefinition(RSIName, types.StrategyTypeTechnical,
			"Long when RSI is oversold, exit when overbought",
			DefaultRSIParams(),
			func(_ *Registry, p RSIParams) (Strategy, error) { return NewRSIThreshold(p), nil }),
		NewDefinition(MACDName, types.StrategyTypeTechnical,
			"Long when the MACD line crosses above its signal line",
			DefaultMACDParams(),
			func(_ *Registry, p MACDParams) (Strategy, error) { return NewMACDCrossover(p), nil }),
		NewDefinition(KeltnerName, types.StrategyTypeTechnical,
			"Long at the lower Keltner channel, exit at the upper channel",
			DefaultKeltnerParams(),
			func(_ *Registry, p KeltnerParams) (Strategy, error) { return NewKeltnerReversion(p), nil }),
		NewDefinition(ModelName, types.StrategyTypeModel,
			"Signals from the forecast of a trained predictor",
			DefaultModelParams(),
			func(r *Registry, p ModelParams) (Strategy, error) {
				predictor, err := r.models.Get(p.Model)
				if err != nil {
					return nil, err
				}

				return NewModelDriven(p, predictor), nil
			}),
		NewDefinition(CompositeName, types.StrategyTypeComposite,
			"Ensemble of other strategies with exit precedence",
			DefaultCompositeParams(),
			func(r *Registry, p CompositeParams) (Strategy, error) {
				members := make([]Strategy, len(p.Members))
				for i, config := range p.Members {
					member, err := r.Build(config)
					if err != nil {
						return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
							"composite member %d (%s)", i, config.Name)
					}

					members[i] = member
				}

				return NewComposite(p, members), nil
			}),
	}
}

// Register adds a variant. Names must be unique.
func (r *Registry) Register(definition Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if definition.Name == "" || definition.Factory == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "strategy definition needs a name and a factory")
	}

	if _, exists := r.definitions[definition.Name]; exists {
		return errors.Newf(errors.ErrCodeDuplicateRegistration, "strategy %s already registered", definition.Name)
	}

	r.definitions[definition.Name] = definition

	return nil
}

// Build resolves config to a validated strategy.
func (r *Registry) Build(config types.StrategyConfig) (Strategy, error) {
	r.mu.RLock()
	definition, exists := r.definitions[config.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", config.Name)
	}

	return definition.Factory(r, config.Parameters)
}

// List returns the catalog sorted by name.
func (r *Registry) List() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CatalogEntry, 0, len(r.definitions))
	for _, definition := range r.definitions {
		entries = append(entries, CatalogEntry{
			Name:        definition.Name,
			Type:        definition.Type,
			Description: definition.Description,
			Defaults:    paramsToMap(definition.Defaults),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries
}

// Schema returns the JSON schema of the parameters of a variant.
func (r *Registry) Schema(name string) (string, error) {
	r.mu.RLock()
	definition, exists := r.definitions[name]
	r.mu.RUnlock()

	if !exists {
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
	}

	schema, err := strategy.ToJSONSchema(definition.Defaults,
		strategy.WithTitle(name),
		strategy.WithDescription(definition.Description),
	)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInternal, err, "failed to build schema for %s", name)
	}

	return schema, nil
}
