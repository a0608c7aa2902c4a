// Package api exposes the backtest engine, the strategy catalog and the
// result store over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"go.uber.org/zap"
)

// ServerConfig wires the collaborators of a Server. Source and Store are
// optional: without a Source requests must carry their bars inline, without
// a Store results are not persisted and the /results routes answer 404.
type ServerConfig struct {
	Engine   engine.Engine
	Registry *strategy.Registry
	Source   marketdata.Source
	Store    store.ResultStore
	// Defaults fill the capital and commission a request leaves out.
	Defaults engine.RunParams
	Logger   *logger.Logger
}

// Server serves the backtest API.
type Server struct {
	config     ServerConfig
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	logger     *logger.Logger
	now        func() time.Time
}

// NewServer builds the router. Start must be called to listen.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Engine == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "engine is required")
	}

	if config.Registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "strategy registry is required")
	}

	s := &Server{
		config: config,
		logger: config.Logger.Named("api"),
		now:    time.Now,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/backtests", s.handleRunBacktest).Methods(http.MethodPost)
	router.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	router.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	router.HandleFunc("/strategies/{name}/schema", s.handleStrategySchema).Methods(http.MethodGet)
	router.HandleFunc("/results", s.handleListResults).Methods(http.MethodGet)
	router.HandleFunc("/results/{id}", s.handleGetResult).Methods(http.MethodGet)
	router.HandleFunc("/results/{id}", s.handleDeleteResult).Methods(http.MethodDelete)
	router.Use(s.logRequests)

	s.router = router

	return s, nil
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address (":0" picks a free port) and serves in the background.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Serving backtest API", zap.String("address", s.Address()))

	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.logger.Debug("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
