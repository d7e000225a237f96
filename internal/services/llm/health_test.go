package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cogentx/cogentx/internal/models"
)

func TestProviderHealthyProbesOllama(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFactory(testProvidersConfig(), testLogger())

	healthy := f.ProviderHealthy(context.Background(), &models.ProviderConfig{OllamaBaseURL: srv.URL})
	assert.True(t, healthy)
	assert.EqualValues(t, 1, probes.Load())
}

func TestProviderHealthyUnreachableOllama(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	healthy := f.ProviderHealthy(context.Background(), &models.ProviderConfig{OllamaBaseURL: "http://127.0.0.1:1"})
	assert.False(t, healthy)
}

func TestProviderHealthyCloudKeySkipsProbe(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	}))
	defer srv.Close()

	cfg := testProvidersConfig()
	cfg.Gemini.APIKey = "g-key-1234567890"
	f := NewFactory(cfg, testLogger())

	healthy := f.ProviderHealthy(context.Background(), &models.ProviderConfig{OllamaBaseURL: srv.URL})
	assert.True(t, healthy)
	assert.Zero(t, probes.Load())
}

func TestProviderHealthyMaskedKeyDoesNotCount(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	healthy := f.ProviderHealthy(context.Background(), &models.ProviderConfig{
		OpenAIAPIKey:  "sk-l••••cdef",
		OllamaBaseURL: "http://127.0.0.1:1",
	})
	assert.False(t, healthy)
}
