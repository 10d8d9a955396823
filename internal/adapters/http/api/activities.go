// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
)

// ActivitiesHandler handles per-activity leaderboard requests.
type ActivitiesHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps Dependencies, maxLimit int) *ActivitiesHandler {
	return &ActivitiesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetActivityLeaderboard handles
// GET /activities/{id}/leaderboard?offset=N&limit=M requests.
func (h *ActivitiesHandler) HandleGetActivityLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_activity_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/activities/")
	activityID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "leaderboard" || strings.TrimSpace(activityID) == "" {
		http.NotFound(w, r)
		return
	}
	offset, limit, ok := parseWindow(r, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), board.KindCumulativeScore, activityID, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
