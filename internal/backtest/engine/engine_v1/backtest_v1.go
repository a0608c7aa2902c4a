package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BacktestEngineV1 composes strategy, simulator and metrics for one or many
// strategy configs. Runs share only the immutable price series.
type BacktestEngineV1 struct {
	config   BacktestEngineV1Config
	registry *strategy.Registry
	log      *logger.Logger
}

// NewBacktestEngineV1 creates an engine. registry resolves strategy configs;
// log may be nil.
func NewBacktestEngineV1(config BacktestEngineV1Config, registry *strategy.Registry, log *logger.Logger) (engine.Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "strategy registry is required")
	}

	return &BacktestEngineV1{
		config:   config,
		registry: registry,
		log:      log.Named("engine"),
	}, nil
}

// RunBacktest implements engine.Engine.
func (b *BacktestEngineV1) RunBacktest(
	ctx context.Context,
	series types.PriceSeries,
	config types.StrategyConfig,
	params engine.RunParams,
) (types.BacktestResult, error) {
	if err := b.preRunCheck(series, params); err != nil {
		return types.BacktestResult{}, err
	}

	s, err := b.registry.Build(config)
	if err != nil {
		return types.BacktestResult{}, err
	}

	return b.run(ctx, series, config, s, params)
}

// Compare implements engine.Engine.
func (b *BacktestEngineV1) Compare(
	ctx context.Context,
	series types.PriceSeries,
	configs []types.StrategyConfig,
	params engine.RunParams,
	callbacks engine.LifecycleCallbacks,
) ([]types.RunOutcome, error) {
	if err := b.preRunCheck(series, params); err != nil {
		return nil, err
	}

	if len(configs) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "at least one strategy config is required")
	}

	outcomes := make([]types.RunOutcome, len(configs))

	// every config is resolved before the first run starts. A config that
	// does not build fails on its own and is never simulated.
	strategies := make([]strategy.Strategy, len(configs))

	for i, config := range configs {
		s, err := b.registry.Build(config)
		if err != nil {
			outcomes[i] = types.NewFailureOutcome(config.Identifier(), errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"strategy config %d (%s)", i, config.Identifier()))

			continue
		}

		strategies[i] = s
	}

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency())

	for i, config := range configs {
		if strategies[i] == nil {
			if callbacks.OnRunEnd != nil {
				(*callbacks.OnRunEnd)(i, outcomes[i])
			}

			continue
		}

		g.Go(func() error {
			if callbacks.OnRunStart != nil {
				(*callbacks.OnRunStart)(i, config.Identifier(), len(configs))
			}

			result, err := b.run(ctx, series, config, strategies[i], params)
			if err != nil {
				outcomes[i] = types.NewFailureOutcome(config.Identifier(), err)
			} else {
				outcomes[i] = types.NewSuccessOutcome(result)
			}

			if callbacks.OnRunEnd != nil {
				(*callbacks.OnRunEnd)(i, outcomes[i])
			}

			// failures stay in their outcome so the other runs continue
			return nil
		})
	}

	_ = g.Wait()

	if callbacks.OnCompareEnd != nil {
		(*callbacks.OnCompareEnd)(outcomes)
	}

	succeeded := 0

	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			succeeded++
		}
	}

	b.log.Info("Comparison finished",
		zap.Int("runs", len(outcomes)),
		zap.Int("succeeded", succeeded),
	)

	return outcomes, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to generate schema", err)
	}

	return schema, nil
}

// run executes one strategy over series under the per run timeout.
func (b *BacktestEngineV1) run(
	ctx context.Context,
	series types.PriceSeries,
	config types.StrategyConfig,
	s strategy.Strategy,
	params engine.RunParams,
) (result types.BacktestResult, err error) {
	ctx, cancel := b.runContext(ctx)
	defer cancel()

	strategyID := config.Identifier()
	started := time.Now()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked: %v", strategyID, recovered)
		}

		if err != nil {
			b.log.Warn("Backtest run failed",
				zap.String("strategy", strategyID),
				zap.String("kind", string(errors.KindOf(err))),
				zap.Error(err),
			)
		}
	}()

	b.log.Debug("Backtest run started",
		zap.String("strategy", strategyID),
		zap.String("symbol", params.Symbol),
		zap.Int("bars", len(series)),
	)

	signals, err := s.GenerateSignals(ctx, series)
	if err != nil {
		return types.BacktestResult{}, strategyError(strategyID, err)
	}

	if err := signals.Validate(len(series)); err != nil {
		return types.BacktestResult{}, err
	}

	runLog := log.NewRunLog(params.Symbol)
	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, params.CommissionRate)
	trading := NewBacktestTrading(params.InitialCapital, commission, runLog, b.log)

	simulation, err := trading.Run(ctx, series, signals)
	if err != nil {
		return types.BacktestResult{}, err
	}

	logs, err := runLog.GetLogs()
	if err != nil {
		return types.BacktestResult{}, errors.Wrap(errors.ErrCodeInternal, "failed to read run log", err)
	}

	result = types.BacktestResult{
		StrategyID:     strategyID,
		Strategy:       s.Describe(),
		Symbol:         params.Symbol,
		InitialCapital: params.InitialCapital,
		CommissionRate: params.CommissionRate,
		EquitySeries:   simulation.EquitySeries,
		Trades:         simulation.Trades,
		Metrics:        metrics.Calculate(simulation.EquitySeries, simulation.Trades, params.InitialCapital, b.config.BarsPerYear),
		Logs:           logs,
		EngineVersion:  version.GetVersion(),
	}

	b.log.Info("Backtest run finished",
		zap.String("strategy", strategyID),
		zap.Int("trades", result.Metrics.TotalTrades),
		zap.Float64("total_return", result.Metrics.TotalReturn),
		zap.Float64("final_value", result.Metrics.FinalValue),
		zap.Duration("elapsed", time.Since(started)),
	)

	return result, nil
}

func (b *BacktestEngineV1) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.config.RunTimeout > 0 {
		return context.WithTimeout(ctx, b.config.RunTimeout)
	}

	return context.WithCancel(ctx)
}

func (b *BacktestEngineV1) concurrency() int {
	if b.config.MaxConcurrency > 0 {
		return b.config.MaxConcurrency
	}

	return DefaultMaxConcurrency
}

// preRunCheck rejects invalid shared inputs before any run starts.
func (b *BacktestEngineV1) preRunCheck(series types.PriceSeries, params engine.RunParams) error {
	if params.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %v", params.InitialCapital)
	}

	if params.CommissionRate < 0 || params.CommissionRate >= 1 {
		return errors.Newf(errors.ErrCodeInvalidCommission, "commission rate must be in [0, 1), got %v", params.CommissionRate)
	}

	return types.ValidatePriceSeries(series)
}

// strategyError keeps cancellation as it is and turns anything else raised by
// a strategy into a strategy runtime error.
func strategyError(strategyID string, err error) error {
	switch errors.KindOf(err) {
	case errors.KindCancelled, errors.KindTimedOut, errors.KindStrategyRuntime:
		return err
	}

	return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed", strategyID)
}
