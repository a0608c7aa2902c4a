package mocks

//go:generate mockgen -destination=./mock_predictor.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/model Predictor
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/strategy Strategy
//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/argo-backtest/pkg/marketdata Source
//go:generate mockgen -destination=./mock_result_store.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/store ResultStore
