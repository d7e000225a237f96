package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/services/llm"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

type HealthHandler struct {
	store   *sessions.Store
	factory *llm.Factory
	logger  arbor.ILogger
}

func NewHealthHandler(store *sessions.Store, factory *llm.Factory, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{store: store, factory: factory, logger: logger}
}

// Health handles GET /api/v1/health. Component status follows the session's
// provider settings when a session header is present, the process defaults
// otherwise. The endpoint never creates or touches a session.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	cfg := h.store.DefaultConfig()
	sessionActive := false
	if sess, ok := h.store.Peek(sessionID); ok {
		cfg = sess.Config()
		sessionActive = true
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"version":         common.GetVersion(),
		"build":           common.GetBuild(),
		"llm": h.factory.ProviderHealthy(r.Context(), cfg),
		// Vector indexes live in-process, so they are reachable whenever
		// the service is.
		"vector_db":       true,
		"session_active":  sessionActive,
		"active_sessions": h.store.Count(),
	})
}
