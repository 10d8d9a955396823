// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// scoreRequest mirrors the request schema for POST /scores.
type scoreRequest struct {
	EventID    string  `json:"event_id,omitempty"`
	UserID     string  `json:"user_id"`
	ActivityID string  `json:"activity_id"`
	Value      float64 `json:"value"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(s.ActivityID) == "":
		return errors.New("missing activity_id")
	case s.Value <= 0:
		return errors.New("value must be positive")
	}
	return nil
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if req.EventID != "" && h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	ev, err := h.deps.RecordScore(r.Context(), req.UserID, req.ActivityID, req.Value)
	if err != nil {
		// Roll back the "seen" status so the client can retry
		if req.EventID != "" {
			h.deps.Unrecord(r.Context(), req.EventID)
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "recorded", ID: ev.ID, Duplicate: false})
}
