// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

// gameRequest mirrors the request schema for POST /games.
type gameRequest struct {
	EventID  string  `json:"event_id,omitempty"`
	UserID   string  `json:"user_id"`
	Duration float64 `json:"duration"`
	Outcome  string  `json:"outcome"`
}

func (g gameRequest) validate() error {
	switch {
	case strings.TrimSpace(g.UserID) == "":
		return errors.New("missing user_id")
	case g.Duration < 0:
		return errors.New("duration must be non-negative")
	case !model.Outcome(g.Outcome).Valid():
		return errors.New("outcome must be won or lost")
	}
	return nil
}

// GamesHandler handles completed-game submissions.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandlePostGame handles POST /games requests.
func (h *GamesHandler) HandlePostGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_game"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if req.EventID != "" && h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	ev, err := h.deps.RecordGame(r.Context(), req.UserID, req.Duration, model.Outcome(req.Outcome))
	if err != nil {
		if req.EventID != "" {
			h.deps.Unrecord(r.Context(), req.EventID)
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "recorded", ID: ev.ID, Duplicate: false})
}
