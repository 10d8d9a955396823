// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Write operations record events and maintain the boards.
	RecordScore(ctx context.Context, entityID, activityID string, value float64) (model.ScoreEvent, error)
	RecordGame(ctx context.Context, entityID string, duration float64, outcome model.Outcome) (model.GameEvent, error)

	// Read operations expose ranked windows.
	Leaderboard(ctx context.Context, kind board.Kind, scopeKey string, offset, limit int) ([]types.RankedEntry, error)

	// Entity lifecycle.
	UpsertEntity(ctx context.Context, e model.Entity) error
	RemoveEntity(ctx context.Context, entityID string) error

	// Rebuild recomputes every board from the durable history.
	Rebuild(ctx context.Context) error

	// Idempotency tracking for client-supplied event ids.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.RankedEntry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	scoresHandler     *ScoresHandler
	gamesHandler      *GamesHandler
	boardHandler      *LeaderboardHandler
	activitiesHandler *ActivitiesHandler
	usersHandler      *UsersHandler
	adminHandler      *AdminHandler
	wsHandler         http.HandlerFunc
}

// NewServer creates a new API server with all handlers. wsHandler serves
// the streaming endpoint; pass nil to disable it.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, wsHandler http.HandlerFunc) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		scoresHandler:     NewScoresHandler(deps),
		gamesHandler:      NewGamesHandler(deps),
		boardHandler:      NewLeaderboardHandler(deps, maxLimit),
		activitiesHandler: NewActivitiesHandler(deps, maxLimit),
		usersHandler:      NewUsersHandler(deps),
		adminHandler:      NewAdminHandler(deps),
		wsHandler:         wsHandler,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("/games", MetricsMiddleware(s.gamesHandler.HandlePostGame, "games"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.boardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/activities/", MetricsMiddleware(s.activitiesHandler.HandleGetActivityLeaderboard, "activity_leaderboard"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUser, "users"))
	mux.HandleFunc("/admin/rebuild-leaderboards", MetricsMiddleware(s.adminHandler.HandleRebuild, "rebuild"))
	if s.wsHandler != nil {
		mux.HandleFunc("/ws", s.wsHandler)
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id,omitempty"`
	Duplicate bool   `json:"duplicate"`
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
