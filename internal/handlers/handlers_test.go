package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/interfaces"
	"github.com/cogentx/cogentx/internal/models"
	"github.com/cogentx/cogentx/internal/services/llm"
	"github.com/cogentx/cogentx/internal/services/query"
	"github.com/cogentx/cogentx/internal/services/sessions"
)

// stubProvider answers every embedding with the same vector and every
// generation with a fixed string.
type stubProvider struct {
	generateCalls int
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (s *stubProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubProvider) Generate(_ context.Context, _ []interfaces.Message) (string, error) {
	s.generateCalls++
	return "stub answer", nil
}

func (s *stubProvider) Clients(_ *models.ProviderConfig) (interfaces.EmbeddingClient, interfaces.GenerationClient, error) {
	return s, s, nil
}

type fixture struct {
	store    *sessions.Store
	provider *stubProvider
	ingest   *IngestHandler
	ask      *AskHandler
	config   *ConfigHandler
	database *DatabaseHandler
	session  *SessionHandler
	health   *HealthHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	// Nothing listens here, so the Ollama liveness probe fails fast and
	// deterministically.
	cfg.Providers.Ollama.BaseURL = "http://127.0.0.1:1"
	store := sessions.NewStore(cfg, logger)
	provider := &stubProvider{}
	engine := query.NewEngine(provider, query.DefaultPrompts(), cfg.Retrieval, logger)

	return &fixture{
		store:    store,
		provider: provider,
		ingest:   NewIngestHandler(store, engine, nil, logger),
		ask:      NewAskHandler(store, engine, logger),
		config:   NewConfigHandler(store, logger),
		database: NewDatabaseHandler(store, logger),
		session:  NewSessionHandler(store, logger),
		health:   NewHealthHandler(store, llm.NewFactory(&cfg.Providers, logger), logger),
	}
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestIngestIssuesSessionAndChunks(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ingest.Ingest, http.MethodPost, "/api/v1/ingest", "", map[string]interface{}{
		"source_identifier": "docs/a",
		"text":              "The sky is blue. Grass is green.",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	sessionID := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, sessionID)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "docs/a", resp.SourceIdentifier)
	assert.Equal(t, 1, resp.ChunksCreated)
	assert.Equal(t, sessionID, resp.SessionID)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"no text or url", map[string]interface{}{"source_identifier": "x"}},
		{"both text and url", map[string]interface{}{"text": "a", "url": "http://x", "source_identifier": "x"}},
		{"text without source", map[string]interface{}{"text": "some text"}},
		{"unknown provider", map[string]interface{}{"text": "a", "source_identifier": "x", "provider": "cohere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, f.ingest.Ingest, http.MethodPost, "/api/v1/ingest", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAskFlow(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ingest.Ingest, http.MethodPost, "/api/v1/ingest", "", map[string]interface{}{
		"source_identifier": "docs/a",
		"text":              "The sky is blue.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(SessionHeader)

	rec = doJSON(t, f.ask.Ask, http.MethodPost, "/api/v1/ask", sessionID, map[string]interface{}{
		"question": "What color is the sky?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stub answer", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "docs/a", resp.Sources[0].Source)
	assert.Contains(t, resp.Sources[0].UsedChunkIndices, 0)
	assert.Equal(t, sessionID, resp.SessionID)
}

func TestAskEmptySessionReturnsCannedAnswer(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ask.Ask, http.MethodPost, "/api/v1/ask", "", map[string]interface{}{
		"question": "anything?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, query.DefaultPrompts().EmptyKnowledgeBase, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, f.provider.generateCalls)
}

func TestStaleSessionGetsNewSessionNotAnError(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ask.Ask, http.MethodPost, "/api/v1/ask", "long-gone-token", map[string]interface{}{
		"question": "anything?",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "long-gone-token", rec.Header().Get(SessionHeader))
}

func TestConfigMaskingRoundTrip(t *testing.T) {
	f := newFixture(t)

	// Set a key
	rec := doJSON(t, f.config.Config, http.MethodPut, "/api/v1/config", "", map[string]interface{}{
		"provider":       "openai",
		"openai_api_key": "sk-test-1234567890abcdef",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(SessionHeader)

	var cfg models.ProviderConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "openai", cfg.Provider)
	assert.True(t, strings.HasPrefix(cfg.OpenAIAPIKey, "sk-t"))
	assert.Contains(t, cfg.OpenAIAPIKey, "•")
	assert.NotContains(t, cfg.OpenAIAPIKey, "1234567890")

	// Write the masked value back; the stored secret must survive
	rec = doJSON(t, f.config.Config, http.MethodPut, "/api/v1/config", sessionID, map[string]interface{}{
		"openai_api_key": cfg.OpenAIAPIKey,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	sess, ok := f.store.Get(sessionID)
	require.True(t, ok)
	assert.Equal(t, "sk-test-1234567890abcdef", sess.Config().OpenAIAPIKey)
}

func TestConfigRejectsUnknownProvider(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.config.Config, http.MethodPut, "/api/v1/config", "", map[string]interface{}{
		"provider": "bedrock",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatabaseLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ingest.Ingest, http.MethodPost, "/api/v1/ingest", "", map[string]interface{}{
		"source_identifier": "docs/a",
		"text":              "First fact. Second fact.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(SessionHeader)

	// Stats
	rec = doJSON(t, f.database.Stats, http.MethodGet, "/api/v1/database/stats", sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["total_documents"])

	// Sources
	rec = doJSON(t, f.database.Sources, http.MethodGet, "/api/v1/database/sources", sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docs/a")

	// Chunks for the source
	rec = doJSON(t, f.database.SourceChunks, http.MethodGet, "/api/v1/database/source/chunks?source=docs/a", sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "First fact.")

	// Delete the source
	rec = doJSON(t, f.database.DeleteSource, http.MethodDelete, "/api/v1/database/source?source=docs/a", sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, f.database.DeleteSource, http.MethodDelete, "/api/v1/database/source?source=docs/a", sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Clear is fine on an already-empty knowledge base
	rec = doJSON(t, f.database.Clear, http.MethodPost, "/api/v1/database/clear", sessionID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionInfoAndDelete(t *testing.T) {
	f := newFixture(t)

	// Unknown token: exists=false, no session created
	rec := doJSON(t, f.session.Info, http.MethodGet, "/api/v1/session/info", "nope", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.False(t, info.Exists)
	assert.Equal(t, 0, f.store.Count())

	// Create via ingest, then info reports counts
	rec = doJSON(t, f.ingest.Ingest, http.MethodPost, "/api/v1/ingest", "", map[string]interface{}{
		"source_identifier": "docs/a",
		"text":              "A fact.",
	})
	sessionID := rec.Header().Get(SessionHeader)

	rec = doJSON(t, f.session.Info, http.MethodGet, "/api/v1/session/info", sessionID, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Exists)
	assert.Equal(t, 1, info.TotalDocuments)

	// Delete is idempotent and always 204
	rec = doJSON(t, f.session.Delete, http.MethodDelete, "/api/v1/session", sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, f.session.Delete, http.MethodDelete, "/api/v1/session", sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.store.Count())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.health.Health, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["llm"], "no keys and no reachable ollama")
	assert.Equal(t, true, body["vector_db"])
	assert.Equal(t, false, body["session_active"])
}

func TestHealthReportsProviderUsableWithCloudKey(t *testing.T) {
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	cfg.Providers.Ollama.BaseURL = "http://127.0.0.1:1"
	cfg.Providers.OpenAI.APIKey = "sk-live-1234567890abcdef"
	store := sessions.NewStore(cfg, logger)
	health := NewHealthHandler(store, llm.NewFactory(&cfg.Providers, logger), logger)

	rec := doJSON(t, health.Health, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["llm"])
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.ingest.Ingest, http.MethodGet, "/api/v1/ingest", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, f.ask.Ask, http.MethodDelete, "/api/v1/ask", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
