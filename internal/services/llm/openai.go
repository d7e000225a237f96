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

const (
	openaiChatURL       = "https://api.openai.com/v1/chat/completions"
	openaiEmbeddingsURL = "https://api.openai.com/v1/embeddings"
)

// OpenAIClient talks to the OpenAI REST API for chat completions and
// embeddings. Embedding requests are batched server-side.
type OpenAIClient struct {
	apiKey     string
	model      string
	embedModel string
	batchSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *RetryConfig
	logger     arbor.ILogger
}

// NewOpenAIClient creates an OpenAI client. batchSize bounds the number of
// texts per embeddings request; rateLimit is requests per second and zero
// disables limiting.
func NewOpenAIClient(apiKey, model, embedModel string, batchSize int, rateLimit float64, timeout time.Duration, logger arbor.ILogger) *OpenAIClient {
	if batchSize <= 0 {
		batchSize = 100
	}
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retry:      NewDefaultRetryConfig(),
		logger:     logger,
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openaiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedBatch embeds texts in batches of at most batchSize per request.
// Result order matches input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openaiEmbedRequest{Model: c.embedModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result openaiEmbedResponse
	err = withRetry(ctx, c.retry, c.logger, "openai embed", func() error {
		return c.post(ctx, openaiEmbeddingsURL, body, &result)
	})
	if err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts: %w", len(result.Data), len(texts), ErrProviderUnavailable)
	}

	// The API documents ordered results but carries an index field; honor it.
	vectors := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai returned out-of-range embedding index %d: %w", d.Index, ErrProviderUnavailable)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Generate produces a chat completion from the conversation.
func (c *OpenAIClient) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	chatMessages := make([]openaiMessage, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, openaiMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(openaiChatRequest{Model: c.model, Messages: chatMessages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var result openaiChatResponse
	err = withRetry(ctx, c.retry, c.logger, "openai generate", func() error {
		return c.post(ctx, openaiChatURL, body, &result)
	})
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from openai model %s: %w", c.model, ErrProviderUnavailable)
	}
	return result.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) post(ctx context.Context, url string, body []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus("openai", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse openai response: %w", err)
	}
	return nil
}
