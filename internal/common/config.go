package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Sessions    SessionConfig   `toml:"sessions"`
	Chunking    ChunkingConfig  `toml:"chunking"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Providers   ProvidersConfig `toml:"providers"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Prompts     PromptsConfig   `toml:"prompts"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
	AccessLog  string   `toml:"access_log"`  // Access log file path ("" = stderr)
}

// SessionConfig controls session lifetime and the expiry sweep.
type SessionConfig struct {
	Timeout       time.Duration `toml:"timeout" validate:"gt=0"`        // Inactivity window before a session expires
	SweepInterval time.Duration `toml:"sweep_interval" validate:"gt=0"` // How often the background sweep runs
	SweepSchedule string        `toml:"sweep_schedule"`                 // Optional cron override for the sweep (takes precedence over sweep_interval)
}

// ChunkingConfig sets the default chunk window; requests may override per call.
type ChunkingConfig struct {
	Size    int `toml:"size" validate:"gt=0"`
	Overlap int `toml:"overlap" validate:"gte=0,ltfield=Size"`
}

// RetrievalConfig controls top-k retrieval behaviour.
type RetrievalConfig struct {
	TopK         int `toml:"top_k" validate:"gte=1,lte=10"`
	PerSourceCap int `toml:"per_source_cap" validate:"gte=0"` // 0 = no per-source cap
}

// ProvidersConfig holds process-wide provider defaults. Each session starts
// from these and may override them through the config endpoint.
type ProvidersConfig struct {
	Default string        `toml:"default" validate:"oneof=ollama openai gemini claude"`
	Timeout time.Duration `toml:"timeout" validate:"gt=0"` // Bound on a single provider call
	Ollama  OllamaConfig  `toml:"ollama"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Claude  ClaudeConfig  `toml:"claude"`
}

type OllamaConfig struct {
	BaseURL    string  `toml:"base_url"`
	Model      string  `toml:"model"`
	EmbedModel string  `toml:"embed_model"`
	RateLimit  float64 `toml:"rate_limit"` // Requests per second to the local server
}

type OpenAIConfig struct {
	APIKey     string  `toml:"api_key"`
	Model      string  `toml:"model"`
	EmbedModel string  `toml:"embed_model"`
	BatchSize  int     `toml:"batch_size"` // Texts per embeddings request
	RateLimit  float64 `toml:"rate_limit"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	EmbedModel  string  `toml:"embed_model"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// FetcherConfig controls URL ingestion.
type FetcherConfig struct {
	UserAgent    string        `toml:"user_agent"`
	Timeout      time.Duration `toml:"timeout" validate:"gt=0"`
	MaxBodyBytes int64         `toml:"max_body_bytes" validate:"gt=0"`
}

// PromptsConfig points at an optional YAML file overriding the built-in
// prompt templates.
type PromptsConfig struct {
	File string `toml:"file"`
}

// NewDefaultConfig returns the configuration defaults. Matches the documented
// environment defaults so a bare binary works against a local Ollama.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Sessions: SessionConfig{
			Timeout:       24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:         5,
			PerSourceCap: 0, // No cap: one large document may dominate citations
		},
		Providers: ProvidersConfig{
			Default: "ollama",
			Timeout: 120 * time.Second,
			Ollama: OllamaConfig{
				BaseURL:    "http://localhost:11434",
				Model:      "llama3:8b",
				EmbedModel: "nomic-embed-text",
				RateLimit:  10,
			},
			OpenAI: OpenAIConfig{
				Model:      "gpt-4",
				EmbedModel: "text-embedding-3-small",
				BatchSize:  100,
				RateLimit:  5,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.5-flash",
				EmbedModel:  "text-embedding-004",
				Temperature: 0.7,
			},
			Claude: ClaudeConfig{
				Model:       "claude-haiku-3-5-20241022",
				MaxTokens:   1000,
				Temperature: 0.7,
			},
		},
		Fetcher: FetcherConfig{
			UserAgent:    "cogentx/1.0 (+https://github.com/cogentx/cogentx)",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 8 * 1024 * 1024,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints and the optional sweep schedule.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("invalid configuration: chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}

	if c.Sessions.SweepSchedule != "" {
		if err := ValidateSweepSchedule(c.Sessions.SweepSchedule); err != nil {
			return fmt.Errorf("invalid sessions.sweep_schedule: %w", err)
		}
	}

	return nil
}

// ValidateSweepSchedule validates a cron expression for the session sweep.
// Descriptors like "@hourly" are accepted, matching what the runtime
// scheduler parses.
func ValidateSweepSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COGENTX_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("COGENTX_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COGENTX_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("COGENTX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("COGENTX_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if timeout := os.Getenv("COGENTX_SESSION_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Sessions.Timeout = d
		}
	}
	if interval := os.Getenv("COGENTX_SESSION_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Sessions.SweepInterval = d
		}
	}

	if size := os.Getenv("CHUNK_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			config.Chunking.Size = v
		}
	}
	if overlap := os.Getenv("CHUNK_OVERLAP"); overlap != "" {
		if v, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.Overlap = v
		}
	}
	if topK := os.Getenv("TOP_K_RESULTS"); topK != "" {
		if v, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = v
		}
	}

	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		config.Providers.Ollama.BaseURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		config.Providers.Ollama.Model = model
	}
	if model := os.Getenv("OLLAMA_EMBED_MODEL"); model != "" {
		config.Providers.Ollama.EmbedModel = model
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Providers.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.Providers.OpenAI.Model = model
	}
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		config.Providers.OpenAI.EmbedModel = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Providers.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.Providers.Gemini.Model = model
	}
	if model := os.Getenv("GEMINI_EMBEDDING_MODEL"); model != "" {
		config.Providers.Gemini.EmbedModel = model
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Providers.Claude.APIKey = key
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		config.Providers.Claude.Model = model
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
