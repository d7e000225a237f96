package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/services/sessions"
)

// DatabaseHandler exposes introspection and management of one session's
// document set. Every route resolves the caller's session first, so a
// stale token silently lands on a fresh empty knowledge base.
type DatabaseHandler struct {
	store  *sessions.Store
	logger arbor.ILogger
}

func NewDatabaseHandler(store *sessions.Store, logger arbor.ILogger) *DatabaseHandler {
	return &DatabaseHandler{store: store, logger: logger}
}

// Stats handles GET /api/v1/database/stats
func (h *DatabaseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	sess := resolveSession(w, r, h.store)

	docs, chunks := sess.Stats()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_documents": docs,
		"total_chunks":    chunks,
		"session_id":      sess.ID,
	})
}

// Sources handles GET /api/v1/database/sources
func (h *DatabaseHandler) Sources(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	sess := resolveSession(w, r, h.store)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources":    sess.Sources(),
		"session_id": sess.ID,
	})
}

// SourceChunks handles GET /api/v1/database/source/chunks?source=...
func (h *DatabaseHandler) SourceChunks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		WriteError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}
	sess := resolveSession(w, r, h.store)

	chunks := sess.ChunksForSource(source)
	if chunks == nil {
		WriteError(w, http.StatusNotFound, "unknown source: "+source)
		return
	}

	type chunkView struct {
		ID       string `json:"id"`
		Sequence int    `json:"sequence_index"`
		Text     string `json:"text"`
	}
	views := make([]chunkView, len(chunks))
	for i, c := range chunks {
		views[i] = chunkView{ID: c.ID, Sequence: c.Sequence, Text: c.Text}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source_identifier": source,
		"chunks":            views,
		"session_id":        sess.ID,
	})
}

// DeleteSource handles DELETE /api/v1/database/source?source=...
func (h *DatabaseHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		WriteError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}
	sess := resolveSession(w, r, h.store)

	if !sess.DeleteSource(source) {
		WriteError(w, http.StatusNotFound, "unknown source: "+source)
		return
	}

	h.logger.Debug().
		Str("session_id", sess.ID).
		Str("source", source).
		Msg("Deleted source")
	WriteSuccess(w, "source deleted")
}

// Clear handles POST /api/v1/database/clear
func (h *DatabaseHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	sess := resolveSession(w, r, h.store)

	sess.Clear()
	h.logger.Debug().Str("session_id", sess.ID).Msg("Cleared knowledge base")
	WriteSuccess(w, "knowledge base cleared")
}
