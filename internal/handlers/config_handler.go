package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/models"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

// ConfigHandler serves a session's provider settings. API keys are masked
// on the way out; a masked value sent back on update keeps the stored
// secret, so a read-modify-write cycle never wipes credentials.
type ConfigHandler struct {
	store  *sessions.Store
	logger arbor.ILogger
}

func NewConfigHandler(store *sessions.Store, logger arbor.ILogger) *ConfigHandler {
	return &ConfigHandler{store: store, logger: logger}
}

// Config handles GET and PUT on /api/v1/config
func (h *ConfigHandler) Config(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPost:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) get(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(w, r, h.store)

	cfg := sess.Config()
	maskConfigKeys(cfg)
	WriteJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(w, r, h.store)

	var incoming models.ProviderConfig
	if !DecodeJSON(w, r, &incoming) {
		return
	}

	if incoming.Provider != "" && !validProvider(incoming.Provider) {
		WriteError(w, http.StatusBadRequest, "unknown provider: "+incoming.Provider)
		return
	}
	if incoming.ChunkSize > 0 && incoming.ChunkOverlap >= incoming.ChunkSize {
		WriteError(w, http.StatusBadRequest, "chunk_overlap must be smaller than chunk_size")
		return
	}

	current := sess.Config()
	merged := mergeConfig(current, &incoming)
	sess.SetConfig(merged)

	h.logger.Debug().
		Str("session_id", sess.ID).
		Str("provider", merged.Provider).
		Msg("Updated session config")

	response := merged.Clone()
	maskConfigKeys(response)
	WriteJSON(w, http.StatusOK, response)
}

// mergeConfig folds an update into the current settings. Empty fields keep
// their current values; masked keys keep the stored secret.
func mergeConfig(current, incoming *models.ProviderConfig) *models.ProviderConfig {
	merged := incoming.Clone()

	if merged.Provider == "" {
		merged.Provider = current.Provider
	}
	merged.OllamaBaseURL = keep(merged.OllamaBaseURL, current.OllamaBaseURL)
	merged.OllamaModel = keep(merged.OllamaModel, current.OllamaModel)
	merged.OllamaEmbedModel = keep(merged.OllamaEmbedModel, current.OllamaEmbedModel)
	merged.OpenAIModel = keep(merged.OpenAIModel, current.OpenAIModel)
	merged.OpenAIEmbedModel = keep(merged.OpenAIEmbedModel, current.OpenAIEmbedModel)
	merged.GeminiModel = keep(merged.GeminiModel, current.GeminiModel)
	merged.GeminiEmbedModel = keep(merged.GeminiEmbedModel, current.GeminiEmbedModel)
	merged.ClaudeModel = keep(merged.ClaudeModel, current.ClaudeModel)

	merged.OpenAIAPIKey = keepSecret(merged.OpenAIAPIKey, current.OpenAIAPIKey)
	merged.GeminiAPIKey = keepSecret(merged.GeminiAPIKey, current.GeminiAPIKey)
	merged.ClaudeAPIKey = keepSecret(merged.ClaudeAPIKey, current.ClaudeAPIKey)

	// Chunking values travel together: overlap 0 is legitimate, so it is
	// only taken when the update also sets a chunk size.
	if incoming.ChunkSize <= 0 {
		merged.ChunkSize = current.ChunkSize
		merged.ChunkOverlap = current.ChunkOverlap
	}
	if merged.TopK <= 0 {
		merged.TopK = current.TopK
	}
	return merged
}

func keep(incoming, current string) string {
	if incoming == "" {
		return current
	}
	return incoming
}

func keepSecret(incoming, current string) string {
	if incoming == "" || isMasked(incoming) {
		return current
	}
	return incoming
}

const maskRune = "•"

func maskConfigKeys(cfg *models.ProviderConfig) {
	cfg.OpenAIAPIKey = maskKey(cfg.OpenAIAPIKey)
	cfg.GeminiAPIKey = maskKey(cfg.GeminiAPIKey)
	cfg.ClaudeAPIKey = maskKey(cfg.ClaudeAPIKey)
}

// maskKey hides the middle of an API key, keeping just enough of the edges
// for the user to recognize which key is set.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat(maskRune, 4)
	}
	return key[:4] + strings.Repeat(maskRune, 4) + key[len(key)-4:]
}

func isMasked(value string) bool {
	return strings.Contains(value, maskRune)
}

func validProvider(name string) bool {
	switch name {
	case models.ProviderOllama, models.ProviderOpenAI, models.ProviderGemini, models.ProviderClaude:
		return true
	}
	return false
}
