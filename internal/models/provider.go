package models

// Provider name constants accepted in requests and session settings.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// ProviderConfig holds the embedding/generation backend settings for one
// session. Settings are session-private; API keys never leave the process
// unmasked.
type ProviderConfig struct {
	Provider string `json:"provider" toml:"provider"`

	OllamaBaseURL    string `json:"ollama_base_url" toml:"ollama_base_url"`
	OllamaModel      string `json:"ollama_model" toml:"ollama_model"`
	OllamaEmbedModel string `json:"ollama_embed_model" toml:"ollama_embed_model"`

	OpenAIAPIKey     string `json:"openai_api_key" toml:"openai_api_key"`
	OpenAIModel      string `json:"openai_model" toml:"openai_model"`
	OpenAIEmbedModel string `json:"openai_embed_model" toml:"openai_embed_model"`

	GeminiAPIKey     string `json:"gemini_api_key" toml:"gemini_api_key"`
	GeminiModel      string `json:"gemini_model" toml:"gemini_model"`
	GeminiEmbedModel string `json:"gemini_embed_model" toml:"gemini_embed_model"`

	ClaudeAPIKey string `json:"claude_api_key" toml:"claude_api_key"`
	ClaudeModel  string `json:"claude_model" toml:"claude_model"`

	ChunkSize    int `json:"chunk_size" toml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" toml:"chunk_overlap"`
	TopK         int `json:"top_k_results" toml:"top_k_results"`
}

// Clone returns a deep copy so session settings can be handed to callers
// without aliasing the stored struct.
func (c *ProviderConfig) Clone() *ProviderConfig {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
