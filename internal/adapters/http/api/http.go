// Package api serves the read-only operational endpoints: Prometheus
// metrics, service stats and standings lookups.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/internal/ranking"
)

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	LeaderboardDependencies
	StandingDependencies
	GalleryDependencies
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	standingHandler    *StandingHandler
	galleryHandler     *GalleryHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// /leaderboard; values below 1 use 100.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		standingHandler:    NewStandingHandler(deps),
		galleryHandler:     NewGalleryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /standing/{id}", MetricsMiddleware(s.standingHandler.HandleGetStanding, "standing"))
	mux.HandleFunc("GET /gallery/{owner}", MetricsMiddleware(s.galleryHandler.HandleGetGallery, "gallery"))
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

// writeRankingError maps ranking sentinels onto HTTP statuses.
func writeRankingError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ranking.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, ranking.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, ranking.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, n int) ([]model.Standing, error)
}

// StandingDependencies defines the interface for single-item reads.
type StandingDependencies interface {
	Standing(ctx context.Context, id string) (model.Standing, error)
}

// GalleryDependencies defines the interface for per-owner reads.
type GalleryDependencies interface {
	Gallery(ctx context.Context, owner string) ([]model.Standing, error)
}
