// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

// userRequest mirrors the request schema for PUT /users/{id}.
type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u userRequest) validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("missing name")
	}
	return nil
}

// UsersHandler handles user lifecycle requests.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleUser handles PUT /users/{id} and DELETE /users/{id} requests.
// DELETE implements the removal flow: the user disappears from every board
// it could appear in before its durable record goes away.
func (h *UsersHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/users/")
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.handlePut(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *UsersHandler) handlePut(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.put_user"
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	err := h.deps.UpsertEntity(r.Context(), model.Entity{ID: id, Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "upserted", ID: id})
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.delete_user"
	if err := h.deps.RemoveEntity(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "removed", ID: id})
}
