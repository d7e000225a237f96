package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/interfaces"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestOllamaEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		// Distinguish vectors by prompt so ordering is verifiable
		vec := []float32{1, 0}
		if req.Prompt == "second" {
			vec = []float32{0, 1}
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vec})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3:8b", "nomic-embed-text", 0, 5*time.Second, testLogger())

	vectors, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "the answer"})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3:8b", "nomic-embed-text", 0, 5*time.Second, testLogger())

	answer, err := client.Generate(context.Background(), []interfaces.Message{
		{Role: "system", Content: "answer briefly"},
		{Role: "user", Content: "what is up"},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	assert.Equal(t, "llama3:8b", gotReq.Model)
	assert.Equal(t, "answer briefly", gotReq.System)
	assert.Equal(t, "what is up", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1}})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3:8b", "nomic-embed-text", 0, 5*time.Second, testLogger())
	client.retry = fastRetry()

	vec, err := client.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOllamaUnreachable(t *testing.T) {
	client := NewOllamaClient("http://127.0.0.1:1", "llama3:8b", "nomic-embed-text", 0, time.Second, testLogger())
	client.retry = fastRetry()

	_, err := client.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
