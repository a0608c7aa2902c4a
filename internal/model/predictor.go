// Package model holds the contract between model-driven strategies and the
// collaborator that trains forecasting models.
package model

import (
	"context"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Predictor is a trained forecasting model. The engine treats it as opaque.
type Predictor interface {
	// Predict forecasts the next bar return from the trailing window.
	// len(window) is always LookbackWindow().
	Predict(ctx context.Context, window types.PriceSeries) (float64, error)
	// LookbackWindow is the number of bars the model needs per prediction.
	LookbackWindow() int
}

// Registry maps model names to trained predictors.
type Registry struct {
	mu         sync.RWMutex
	predictors map[string]Predictor
}

func NewRegistry() *Registry {
	return &Registry{predictors: make(map[string]Predictor)}
}

// NewDefaultRegistry returns a registry holding the built-in momentum model.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(MomentumModelName, NewMomentumPredictor(DefaultMomentumLookback))

	return registry
}

func (r *Registry) Register(name string, predictor Predictor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.predictors[name]; exists {
		return errors.Newf(errors.ErrCodeDuplicateRegistration, "model %s already registered", name)
	}

	if predictor.LookbackWindow() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "model %s must have a positive lookback window", name)
	}

	r.predictors[name] = predictor

	return nil
}

func (r *Registry) Get(name string) (Predictor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	predictor, exists := r.predictors[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeModelNotFound, "model %s not found", name)
	}

	return predictor, nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.predictors))
	for name := range r.predictors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
