package api

import (
	"encoding/json"
	"net/http"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ErrorResponse is the body of every non 2xx response.
type ErrorResponse struct {
	ErrorKind errors.ErrorKind `json:"error_kind"`
	Reason    string           `json:"reason"`
}

// statusOf maps an error kind onto an HTTP status.
func statusOf(kind errors.ErrorKind) int {
	switch kind {
	case errors.KindConfiguration, errors.KindData, errors.KindEmptyRange:
		return http.StatusBadRequest
	case errors.KindUnknownTicker, errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindStrategyRuntime, errors.KindMarketData:
		return http.StatusUnprocessableEntity
	case errors.KindTransientFetch:
		return http.StatusServiceUnavailable
	case errors.KindTimedOut:
		return http.StatusGatewayTimeout
	case errors.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	writeJSON(w, statusOf(kind), ErrorResponse{ErrorKind: kind, Reason: err.Error()})
}
