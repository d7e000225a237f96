package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cogentx/cogentx/internal/models"
)

// healthProbeTimeout keeps the liveness probe from holding up the health
// endpoint when the local server is down.
const healthProbeTimeout = 2 * time.Second

// ProviderHealthy reports whether the session's provider settings can reach
// a backend. A usable cloud API key is taken at face value; without one the
// local Ollama server is probed for liveness.
func (f *Factory) ProviderHealthy(ctx context.Context, pc *models.ProviderConfig) bool {
	if keyUsable(firstNonEmpty(pc.OpenAIAPIKey, f.cfg.OpenAI.APIKey)) ||
		keyUsable(firstNonEmpty(pc.GeminiAPIKey, f.cfg.Gemini.APIKey)) ||
		keyUsable(firstNonEmpty(pc.ClaudeAPIKey, f.cfg.Claude.APIKey)) {
		return true
	}

	baseURL := firstNonEmpty(pc.OllamaBaseURL, f.cfg.Ollama.BaseURL)
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := (&http.Client{Timeout: healthProbeTimeout}).Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// keyUsable mirrors the masked-key guard on the config endpoint: a masked
// value is display-only and cannot authenticate.
func keyUsable(key string) bool {
	key = strings.TrimSpace(key)
	return len(key) > 10 && !strings.Contains(key, "•")
}
