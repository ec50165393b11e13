// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/vaep/internal/adapters/mq/worker"
	"github.com/okian/vaep/internal/adapters/repository"
	service "github.com/okian/vaep/internal/app"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/vaep"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Rate rates a game on the worker pool and stores the result.
	Rate(ctx context.Context, game model.Game) (model.GameResult, error)

	// Get returns the last stored result of a game.
	Get(ctx context.Context, gameID string) (model.GameResult, error)

	// Engine returns the engine the service rates with, nil before start.
	Engine() *vaep.Engine
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	gamesHandler  *GamesHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxBodyBytes int64
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		gamesHandler:  NewGamesHandler(deps, cfg.maxBodyBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /labels", MetricsMiddleware(s.gamesHandler.HandlePostLabels, "labels"))
	mux.HandleFunc("POST /values", MetricsMiddleware(s.gamesHandler.HandlePostValues, "values"))
	mux.HandleFunc("GET /games/{game_id}", MetricsMiddleware(s.gamesHandler.HandleGetGame, "games"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrGameInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	}
	switch kind := worker.ErrorKind(err); kind {
	case "internal", "cancelled", "stopped":
		return http.StatusInternalServerError, "internal_error"
	default:
		return http.StatusBadRequest, kind
	}
}

func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
