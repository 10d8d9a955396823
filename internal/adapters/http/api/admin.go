// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleRebuild handles POST /admin/rebuild-leaderboards requests. The
// rebuild runs synchronously; the response reports its outcome.
func (h *AdminHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.rebuild"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Rebuild(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "rebuilt"})
}
