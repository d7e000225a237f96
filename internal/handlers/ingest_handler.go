package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/interfaces"
	"github.com/cogentx/cogentx/internal/services/query"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

type IngestHandler struct {
	store   *sessions.Store
	engine  *query.Engine
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewIngestHandler(store *sessions.Store, engine *query.Engine, fetcher interfaces.Fetcher, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{store: store, engine: engine, fetcher: fetcher, logger: logger}
}

type ingestRequest struct {
	SourceIdentifier string `json:"source_identifier"`
	Text             string `json:"text"`
	URL              string `json:"url"`
	Title            string `json:"title"`
	Provider         string `json:"provider"`
	ChunkSize        int    `json:"chunk_size"`
	ChunkOverlap     int    `json:"chunk_overlap"`
}

type ingestResponse struct {
	SourceIdentifier string `json:"source_identifier"`
	ChunksCreated    int    `json:"chunks_created"`
	SessionID        string `json:"session_id"`
}

// Ingest handles POST /api/v1/ingest. The document arrives either inline
// as text or as a URL to fetch; a URL becomes its own source identifier
// unless the request names one.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ingestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Text == "" && req.URL == "" {
		WriteError(w, http.StatusBadRequest, "either text or url is required")
		return
	}
	if req.Text != "" && req.URL != "" {
		WriteError(w, http.StatusBadRequest, "text and url are mutually exclusive")
		return
	}
	if req.Provider != "" && !validProvider(req.Provider) {
		WriteError(w, http.StatusBadRequest, "unknown provider: "+req.Provider)
		return
	}

	sess := resolveSession(w, r, h.store)

	text := req.Text
	title := req.Title
	source := req.SourceIdentifier

	if req.URL != "" {
		page, err := h.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			h.logger.Warn().Err(err).Str("url", req.URL).Msg("Fetch failed")
			WriteError(w, http.StatusBadGateway, err.Error())
			return
		}
		text = page.Content
		if title == "" {
			title = page.Title
		}
		if source == "" {
			source = page.URL
		}
	}

	if strings.TrimSpace(source) == "" {
		WriteError(w, http.StatusBadRequest, "source_identifier is required for inline text")
		return
	}
	if title == "" {
		title = source
	}

	record, err := h.engine.Ingest(r.Context(), sess, query.IngestOptions{
		Source:       source,
		Title:        title,
		Text:         text,
		Provider:     req.Provider,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, ingestResponse{
		SourceIdentifier: record.Source,
		ChunksCreated:    record.ChunkCount,
		SessionID:        sess.ID,
	})
}
