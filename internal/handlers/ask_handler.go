package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/models"
	"github.com/cogentx/cogentx/internal/services/query"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

type AskHandler struct {
	store  *sessions.Store
	engine *query.Engine
	logger arbor.ILogger
}

func NewAskHandler(store *sessions.Store, engine *query.Engine, logger arbor.ILogger) *AskHandler {
	return &AskHandler{store: store, engine: engine, logger: logger}
}

type askRequest struct {
	Question string `json:"question"`
	Provider string `json:"provider"`
	TopK     int    `json:"top_k"`
}

type askResponse struct {
	Answer     string                  `json:"answer"`
	Sources    []models.SourceCitation `json:"sources"`
	ChunksUsed int                     `json:"chunks_used"`
	SessionID  string                  `json:"session_id"`
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req askRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Provider != "" && !validProvider(req.Provider) {
		WriteError(w, http.StatusBadRequest, "unknown provider: "+req.Provider)
		return
	}

	sess := resolveSession(w, r, h.store)

	result, err := h.engine.Ask(r.Context(), sess, query.AskOptions{
		Question: req.Question,
		Provider: req.Provider,
		TopK:     req.TopK,
	})
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, askResponse{
		Answer:     result.Answer,
		Sources:    result.Sources,
		ChunksUsed: result.ChunksUsed,
		SessionID:  sess.ID,
	})
}
