package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/cogentx/cogentx/internal/interfaces"
)

// GeminiClient serves embeddings and generation through the Google genai
// SDK. The underlying client is created lazily on first use because the SDK
// constructor needs a context.
type GeminiClient struct {
	apiKey      string
	model       string
	embedModel  string
	temperature float32
	timeout     time.Duration
	retry       *RetryConfig
	logger      arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a Gemini client. Each call is bounded by timeout
// so a stalled backend cannot hold a request indefinitely.
func NewGeminiClient(apiKey, model, embedModel string, temperature float32, timeout time.Duration, logger arbor.ILogger) *GeminiClient {
	return &GeminiClient{
		apiKey:      apiKey,
		model:       model,
		embedModel:  embedModel,
		temperature: temperature,
		timeout:     timeout,
		retry:       NewDefaultRetryConfig(),
		logger:      logger,
	}
}

func (c *GeminiClient) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v: %w", err, ErrMisconfigured)
	}
	c.client = client
	return client, nil
}

// EmbedBatch embeds document chunks using the retrieval-document task type.
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.embed(ctx, text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// EmbedQuery embeds a search query using the retrieval-query task type.
func (c *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (c *GeminiClient) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	ctx, cancel := callContext(ctx, c.timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	embeddingConfig := &genai.EmbedContentConfig{
		TaskType: taskType,
	}

	var result *genai.EmbedContentResponse
	err = withRetry(ctx, c.retry, c.logger, "gemini embed", func() error {
		var apiErr error
		result, apiErr = client.Models.EmbedContent(ctx, c.embedModel, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
		return classifyGeminiErr(apiErr)
	})
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned from gemini model %s: %w", c.embedModel, ErrProviderUnavailable)
	}
	return result.Embeddings[0].Values, nil
}

// Generate produces a completion. System messages become the system
// instruction; remaining turns map onto Gemini contents.
func (c *GeminiClient) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := callContext(ctx, c.timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if c.temperature > 0 {
		config.Temperature = genai.Ptr(c.temperature)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	err = withRetry(ctx, c.retry, c.logger, "gemini generate", func() error {
		var apiErr error
		resp, apiErr = client.Models.GenerateContent(ctx, c.model, contents, config)
		return classifyGeminiErr(apiErr)
	})
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from gemini model %s: %w", c.model, ErrProviderUnavailable)
	}
	responseText := resp.Text()
	if responseText == "" {
		return "", fmt.Errorf("empty text in gemini response: %w", ErrProviderUnavailable)
	}
	return responseText, nil
}

// convertMessagesToGemini maps conversation turns onto Gemini contents,
// lifting the first system message out for use as a system instruction.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return contents, systemText, nil
}

// classifyGeminiErr maps SDK errors onto the sentinel taxonomy. The genai
// SDK surfaces API failures as formatted errors, so classification is by
// status markers in the message.
func classifyGeminiErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "quota"):
		return fmt.Errorf("gemini: %v: %w", err, ErrRateLimited)
	case strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "404") || strings.Contains(msg, "NOT_FOUND"):
		return fmt.Errorf("gemini: %v: %w", err, ErrMisconfigured)
	default:
		return fmt.Errorf("gemini: %v: %w", err, ErrProviderUnavailable)
	}
}
