package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/interfaces"
)

// ClaudeClient generates answers through the Anthropic SDK. Claude has no
// embeddings API, so the factory pairs it with another provider's embedding
// client.
type ClaudeClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	retry       *RetryConfig
	logger      arbor.ILogger
}

// NewClaudeClient creates a Claude client. Each call is bounded by timeout
// so a stalled backend cannot hold a request indefinitely.
func NewClaudeClient(apiKey, model string, maxTokens int, temperature float32, timeout time.Duration, logger arbor.ILogger) *ClaudeClient {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeClient{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		retry:       NewDefaultRetryConfig(),
		logger:      logger,
	}
}

// Generate produces a completion from the conversation.
func (c *ClaudeClient) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := callContext(ctx, c.timeout)
	defer cancel()

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  claudeMessages,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	err = withRetry(ctx, c.retry, c.logger, "claude generate", func() error {
		var apiErr error
		resp, apiErr = c.client.Messages.New(ctx, params)
		return classifyClaudeErr(apiErr)
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from claude model %s: %w", c.model, ErrProviderUnavailable)
	}
	return text.String(), nil
}

// convertMessagesToClaude converts conversation turns to Claude MessageParam
// format. System messages are extracted separately for the System parameter.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	if len(claudeMessages) == 0 {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return claudeMessages, systemText, nil
}

func classifyClaudeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate_limit"):
		return fmt.Errorf("claude: %v: %w", err, ErrRateLimited)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "authentication") || strings.Contains(msg, "not_found"):
		return fmt.Errorf("claude: %v: %w", err, ErrMisconfigured)
	default:
		return fmt.Errorf("claude: %v: %w", err, ErrProviderUnavailable)
	}
}
