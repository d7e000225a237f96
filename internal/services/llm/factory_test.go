package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/models"
)

func testProvidersConfig() *common.ProvidersConfig {
	return &common.ProvidersConfig{
		Default: models.ProviderOllama,
		Timeout: 30 * time.Second,
		Ollama: common.OllamaConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "llama3:8b",
			EmbedModel: "nomic-embed-text",
			RateLimit:  10,
		},
		OpenAI: common.OpenAIConfig{
			Model:      "gpt-4",
			EmbedModel: "text-embedding-3-small",
			BatchSize:  100,
			RateLimit:  5,
		},
		Gemini: common.GeminiConfig{
			Model:      "gemini-2.5-flash",
			EmbedModel: "text-embedding-004",
		},
		Claude: common.ClaudeConfig{
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 1000,
		},
	}
}

func TestFactoryDefaultsToConfiguredProvider(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	embed, gen, err := f.Clients(&models.ProviderConfig{})
	require.NoError(t, err)

	_, ok := embed.(*OllamaClient)
	assert.True(t, ok)
	_, ok = gen.(*OllamaClient)
	assert.True(t, ok)
}

func TestFactorySessionProviderBeatsDefault(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	embed, gen, err := f.Clients(&models.ProviderConfig{
		Provider:     models.ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
	})
	require.NoError(t, err)

	_, ok := embed.(*OpenAIClient)
	assert.True(t, ok)
	_, ok = gen.(*OpenAIClient)
	assert.True(t, ok)
}

func TestFactoryMissingKeyIsMisconfigured(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	tests := []string{models.ProviderOpenAI, models.ProviderGemini, models.ProviderClaude}
	for _, provider := range tests {
		t.Run(provider, func(t *testing.T) {
			_, _, err := f.Clients(&models.ProviderConfig{Provider: provider})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMisconfigured))
		})
	}
}

func TestFactoryUnknownProviderIsMisconfigured(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	_, _, err := f.Clients(&models.ProviderConfig{Provider: "cohere"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMisconfigured))
}

func TestFactoryClaudeEmbeddingFallback(t *testing.T) {
	t.Run("prefers gemini when its key is set", func(t *testing.T) {
		cfg := testProvidersConfig()
		cfg.Gemini.APIKey = "g-key"
		f := NewFactory(cfg, testLogger())

		embed, gen, err := f.Clients(&models.ProviderConfig{
			Provider:     models.ProviderClaude,
			ClaudeAPIKey: "c-key",
		})
		require.NoError(t, err)

		_, ok := embed.(*GeminiClient)
		assert.True(t, ok)
		_, ok = gen.(*ClaudeClient)
		assert.True(t, ok)
	})

	t.Run("falls through to openai", func(t *testing.T) {
		cfg := testProvidersConfig()
		cfg.OpenAI.APIKey = "sk-key"
		f := NewFactory(cfg, testLogger())

		embed, _, err := f.Clients(&models.ProviderConfig{
			Provider:     models.ProviderClaude,
			ClaudeAPIKey: "c-key",
		})
		require.NoError(t, err)

		_, ok := embed.(*OpenAIClient)
		assert.True(t, ok)
	})

	t.Run("lands on local ollama with no cloud keys", func(t *testing.T) {
		f := NewFactory(testProvidersConfig(), testLogger())

		embed, _, err := f.Clients(&models.ProviderConfig{
			Provider:     models.ProviderClaude,
			ClaudeAPIKey: "c-key",
		})
		require.NoError(t, err)

		_, ok := embed.(*OllamaClient)
		assert.True(t, ok)
	})
}

func TestFactorySessionModelOverride(t *testing.T) {
	f := NewFactory(testProvidersConfig(), testLogger())

	embed, _, err := f.Clients(&models.ProviderConfig{
		OllamaEmbedModel: "mxbai-embed-large",
	})
	require.NoError(t, err)

	client, ok := embed.(*OllamaClient)
	require.True(t, ok)
	assert.Equal(t, "mxbai-embed-large", client.embedModel)
	assert.Equal(t, "llama3:8b", client.model)
}

func TestFactoryPropagatesCallTimeout(t *testing.T) {
	cfg := testProvidersConfig()
	cfg.Gemini.APIKey = "g-key-1234567890"
	cfg.Claude.APIKey = "c-key-1234567890"
	f := NewFactory(cfg, testLogger())

	embed, gen, err := f.Clients(&models.ProviderConfig{Provider: models.ProviderClaude})
	require.NoError(t, err)

	gemini, ok := embed.(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, cfg.Timeout, gemini.timeout)

	claude, ok := gen.(*ClaudeClient)
	require.True(t, ok)
	assert.Equal(t, cfg.Timeout, claude.timeout)
}
