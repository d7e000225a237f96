package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/interfaces"
	"github.com/cogentx/cogentx/internal/models"
)

// Factory builds embedding and generation clients from a session's provider
// settings, falling back to process-wide defaults for anything the session
// leaves unset. Clients are cheap to construct, so the factory builds fresh
// ones per call rather than caching across sessions.
type Factory struct {
	cfg    *common.ProvidersConfig
	logger arbor.ILogger
}

// NewFactory creates a provider factory over the process defaults.
func NewFactory(cfg *common.ProvidersConfig, logger arbor.ILogger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Clients resolves a session's provider settings into an embedding client
// and a generation client. Claude carries no embeddings API, so a Claude
// session borrows embeddings from another configured provider.
func (f *Factory) Clients(pc *models.ProviderConfig) (interfaces.EmbeddingClient, interfaces.GenerationClient, error) {
	provider := pc.Provider
	if provider == "" {
		provider = f.cfg.Default
	}

	gen, err := f.generationClient(provider, pc)
	if err != nil {
		return nil, nil, err
	}

	embedProvider := provider
	if provider == models.ProviderClaude {
		embedProvider = f.embeddingFallback(pc)
		f.logger.Debug().
			Str("provider", provider).
			Str("embed_provider", embedProvider).
			Msg("Claude session using fallback embedding provider")
	}

	embed, err := f.embeddingClient(embedProvider, pc)
	if err != nil {
		return nil, nil, err
	}
	return embed, gen, nil
}

// embeddingFallback picks an embedding backend for providers without an
// embeddings API. Prefers a cloud provider with a configured key, then the
// local Ollama server.
func (f *Factory) embeddingFallback(pc *models.ProviderConfig) string {
	if firstNonEmpty(pc.GeminiAPIKey, f.cfg.Gemini.APIKey) != "" {
		return models.ProviderGemini
	}
	if firstNonEmpty(pc.OpenAIAPIKey, f.cfg.OpenAI.APIKey) != "" {
		return models.ProviderOpenAI
	}
	return models.ProviderOllama
}

func (f *Factory) embeddingClient(provider string, pc *models.ProviderConfig) (interfaces.EmbeddingClient, error) {
	switch provider {
	case models.ProviderOllama:
		return f.ollama(pc), nil

	case models.ProviderOpenAI:
		apiKey := firstNonEmpty(pc.OpenAIAPIKey, f.cfg.OpenAI.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key not set: %w", ErrMisconfigured)
		}
		return f.openai(apiKey, pc), nil

	case models.ProviderGemini:
		apiKey := firstNonEmpty(pc.GeminiAPIKey, f.cfg.Gemini.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("gemini api key not set: %w", ErrMisconfigured)
		}
		return f.gemini(apiKey, pc), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", provider, ErrMisconfigured)
	}
}

func (f *Factory) generationClient(provider string, pc *models.ProviderConfig) (interfaces.GenerationClient, error) {
	switch provider {
	case models.ProviderOllama:
		return f.ollama(pc), nil

	case models.ProviderOpenAI:
		apiKey := firstNonEmpty(pc.OpenAIAPIKey, f.cfg.OpenAI.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key not set: %w", ErrMisconfigured)
		}
		return f.openai(apiKey, pc), nil

	case models.ProviderGemini:
		apiKey := firstNonEmpty(pc.GeminiAPIKey, f.cfg.Gemini.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("gemini api key not set: %w", ErrMisconfigured)
		}
		return f.gemini(apiKey, pc), nil

	case models.ProviderClaude:
		apiKey := firstNonEmpty(pc.ClaudeAPIKey, f.cfg.Claude.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("claude api key not set: %w", ErrMisconfigured)
		}
		model := firstNonEmpty(pc.ClaudeModel, f.cfg.Claude.Model)
		return NewClaudeClient(apiKey, model, f.cfg.Claude.MaxTokens, f.cfg.Claude.Temperature, f.cfg.Timeout, f.logger), nil

	default:
		return nil, fmt.Errorf("unknown provider %q: %w", provider, ErrMisconfigured)
	}
}

func (f *Factory) ollama(pc *models.ProviderConfig) *OllamaClient {
	return NewOllamaClient(
		firstNonEmpty(pc.OllamaBaseURL, f.cfg.Ollama.BaseURL),
		firstNonEmpty(pc.OllamaModel, f.cfg.Ollama.Model),
		firstNonEmpty(pc.OllamaEmbedModel, f.cfg.Ollama.EmbedModel),
		f.cfg.Ollama.RateLimit,
		f.cfg.Timeout,
		f.logger,
	)
}

func (f *Factory) openai(apiKey string, pc *models.ProviderConfig) *OpenAIClient {
	return NewOpenAIClient(
		apiKey,
		firstNonEmpty(pc.OpenAIModel, f.cfg.OpenAI.Model),
		firstNonEmpty(pc.OpenAIEmbedModel, f.cfg.OpenAI.EmbedModel),
		f.cfg.OpenAI.BatchSize,
		f.cfg.OpenAI.RateLimit,
		f.cfg.Timeout,
		f.logger,
	)
}

func (f *Factory) gemini(apiKey string, pc *models.ProviderConfig) *GeminiClient {
	return NewGeminiClient(
		apiKey,
		firstNonEmpty(pc.GeminiModel, f.cfg.Gemini.Model),
		firstNonEmpty(pc.GeminiEmbedModel, f.cfg.Gemini.EmbedModel),
		f.cfg.Gemini.Temperature,
		f.cfg.Timeout,
		f.logger,
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
