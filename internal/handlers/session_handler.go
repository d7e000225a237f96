package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/services/sessions"
)

type SessionHandler struct {
	store  *sessions.Store
	logger arbor.ILogger
}

func NewSessionHandler(store *sessions.Store, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// Info handles GET /api/v1/session/info. Unlike the other routes this never
// creates a session: the point is to ask whether the caller's token is
// still live, and polling must not keep a dying session alive.
func (h *SessionHandler) Info(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	info := h.store.Info(r.Header.Get(SessionHeader))
	WriteJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/v1/session. Idempotent: deleting an unknown or
// already-deleted session is still a 204.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if id := r.Header.Get(SessionHeader); id != "" {
		h.store.Delete(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
