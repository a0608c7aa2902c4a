package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// MarketDataRequest selects the bars of a request. Inline bars win over a
// fetch from the configured source.
type MarketDataRequest struct {
	Symbol string            `json:"symbol" validate:"required"`
	Start  time.Time         `json:"start"`
	End    time.Time         `json:"end"`
	Bars   types.PriceSeries `json:"bars,omitempty"`
	// InitialCapital and CommissionRate default to the server defaults when omitted.
	InitialCapital *float64 `json:"initial_capital,omitempty"`
	CommissionRate *float64 `json:"commission_rate,omitempty"`
}

// BacktestRequest is the body of POST /backtests.
type BacktestRequest struct {
	MarketDataRequest
	Strategy types.StrategyConfig `json:"strategy"`
}

// BacktestResponse carries the result and, when it was stored, its id.
type BacktestResponse struct {
	ID     string               `json:"id,omitempty"`
	Result types.BacktestResult `json:"result"`
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	MarketDataRequest
	Strategies []types.StrategyConfig `json:"strategies"`
}

// CompareResponse carries the outcomes in request order. When a store is
// configured, ResultIDs[i] is the stored id of Outcomes[i], empty for a failed run.
type CompareResponse struct {
	Outcomes  []types.RunOutcome `json:"outcomes"`
	ResultIDs []string           `json:"result_ids,omitempty"`
}

var validate = validator.New()

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var request BacktestRequest
	if err := decode(r, &request); err != nil {
		writeError(w, err)

		return
	}

	series, err := s.loadSeries(r, request.MarketDataRequest)
	if err != nil {
		writeError(w, err)

		return
	}

	result, err := s.config.Engine.RunBacktest(r.Context(), series, request.Strategy, s.runParams(request.MarketDataRequest))
	if err != nil {
		writeError(w, err)

		return
	}

	response := BacktestResponse{Result: result}

	if s.config.Store != nil {
		id, err := s.config.Store.Save(r.Context(), result)
		if err != nil {
			writeError(w, err)

			return
		}

		response.ID = id
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var request CompareRequest
	if err := decode(r, &request); err != nil {
		writeError(w, err)

		return
	}

	if len(request.Strategies) == 0 {
		writeError(w, errors.New(errors.ErrCodeMissingParameter, "at least one strategy is required"))

		return
	}

	series, err := s.loadSeries(r, request.MarketDataRequest)
	if err != nil {
		writeError(w, err)

		return
	}

	outcomes, err := s.config.Engine.Compare(r.Context(), series, request.Strategies, s.runParams(request.MarketDataRequest), engine.LifecycleCallbacks{})
	if err != nil {
		writeError(w, err)

		return
	}

	response := CompareResponse{Outcomes: outcomes}

	if s.config.Store != nil {
		response.ResultIDs = make([]string, len(outcomes))

		for i, outcome := range outcomes {
			if !outcome.Succeeded() {
				continue
			}

			id, err := s.config.Store.Save(r.Context(), outcome.Result.Unwrap())
			if err != nil {
				writeError(w, err)

				return
			}

			response.ResultIDs[i] = id
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Registry.List())
}

func (s *Server) handleStrategySchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.config.Registry.Schema(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write([]byte(schema))
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeJSON(w, http.StatusOK, []types.ResultSummary{})

		return
	}

	summaries, err := s.config.Store.List(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if s.config.Store == nil {
		writeError(w, errors.Newf(errors.ErrCodeResultNotFound, "result %s not found", id))

		return
	}

	result, err := s.config.Store.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, BacktestResponse{ID: id, Result: result})
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if s.config.Store == nil {
		writeError(w, errors.Newf(errors.ErrCodeResultNotFound, "result %s not found", id))

		return
	}

	if err := s.config.Store.Delete(r.Context(), id); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadSeries returns the inline bars of request or fetches them from the source.
func (s *Server) loadSeries(r *http.Request, request MarketDataRequest) (types.PriceSeries, error) {
	if len(request.Bars) > 0 {
		if err := types.ValidatePriceSeries(request.Bars); err != nil {
			return nil, err
		}

		return request.Bars, nil
	}

	if s.config.Source == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "bars are required: no market data source is configured")
	}

	if request.Start.IsZero() || request.End.IsZero() {
		return nil, errors.New(errors.ErrCodeMissingParameter, "start and end are required to fetch market data")
	}

	series, err := s.config.Source.Fetch(r.Context(), request.Symbol, request.Start, request.End)
	if err != nil {
		s.logger.Warn("Market data fetch failed",
			zap.String("symbol", request.Symbol),
			zap.String("source", s.config.Source.Name()),
			zap.Error(err),
		)

		return nil, err
	}

	if err := types.ValidatePriceSeries(series); err != nil {
		return nil, err
	}

	return series, nil
}

func (s *Server) runParams(request MarketDataRequest) engine.RunParams {
	params := s.config.Defaults
	params.Symbol = request.Symbol

	if request.InitialCapital != nil {
		params.InitialCapital = *request.InitialCapital
	}

	if request.CommissionRate != nil {
		params.CommissionRate = *request.CommissionRate
	}

	return params
}

func decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err)
	}

	if err := validate.Struct(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request", err)
	}

	return nil
}
