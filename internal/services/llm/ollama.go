package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/cogentx/cogentx/internal/interfaces"
)

// OllamaClient talks to a local Ollama server over its HTTP API. It serves
// both embedding and generation; the two roles use separate model names.
type OllamaClient struct {
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *RetryConfig
	logger     arbor.ILogger
}

// NewOllamaClient creates an Ollama client. rateLimit is requests per second
// against the local server; zero disables limiting.
func NewOllamaClient(baseURL, model, embedModel string, rateLimit float64, timeout time.Duration, logger arbor.ILogger) *OllamaClient {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retry:      NewDefaultRetryConfig(),
		logger:     logger,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// EmbedBatch embeds each text with a separate call. Ollama's embeddings
// endpoint takes one prompt at a time.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string. Ollama makes no distinction
// between document and query embeddings.
func (c *OllamaClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text)
}

func (c *OllamaClient) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result ollamaEmbedResponse
	err = withRetry(ctx, c.retry, c.logger, "ollama embed", func() error {
		return c.post(ctx, "/api/embeddings", body, &result)
	})
	if err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding for model %s: %w", c.embedModel, ErrMisconfigured)
	}
	return result.Embedding, nil
}

// Generate produces a completion. System messages are lifted into the system
// field; the remaining turns are flattened into a single prompt since the
// generate endpoint is not conversational.
func (c *OllamaClient) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	var system string
	var prompt strings.Builder
	for _, msg := range messages {
		if msg.Role == "system" {
			if system == "" {
				system = msg.Content
			}
			continue
		}
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(msg.Content)
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt.String(),
		System: system,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var result ollamaGenerateResponse
	err = withRetry(ctx, c.retry, c.logger, "ollama generate", func() error {
		return c.post(ctx, "/api/generate", body, &result)
	})
	if err != nil {
		return "", err
	}
	if result.Response == "" {
		return "", fmt.Errorf("empty response from ollama model %s: %w", c.model, ErrProviderUnavailable)
	}
	return result.Response, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus("ollama", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse ollama response: %w", err)
	}
	return nil
}
