// Package config loads the application configuration: compiled-in
// defaults, overlaid by an optional yaml file, overlaid by environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in the provider field.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the full application configuration.
type Config struct {
	// Provider selects the chat backend: "openai" (any OpenAI-compatible
	// endpoint) or "gemini".
	Provider string `yaml:"provider"`

	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Security  SecurityConfig  `yaml:"security"`
	Data      DataConfig      `yaml:"data"`

	// QualityScoring enables the optional 1-100 answer rating pass.
	QualityScoring bool `yaml:"quality_scoring"`
}

// ModelConfig configures the chat model.
type ModelConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Name        string  `yaml:"name"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	Path string `yaml:"path"`
	TopK int    `yaml:"top_k"`
}

// SecurityConfig configures the safety gate.
type SecurityConfig struct {
	MaxQueryLength int `yaml:"max_query_length"`
	RateLimit      int `yaml:"rate_limit"`
	// RedisAddr switches the rate-limit window to redis when set; empty
	// keeps the in-memory store.
	RedisAddr string `yaml:"redis_addr"`
}

// DataConfig points at the document folders and the hours export.
type DataConfig struct {
	DocsDir    string `yaml:"docs_dir"`
	HoursCSV   string `yaml:"hours_csv"`
	ResumesDir string `yaml:"resumes_dir"`
	SheetsDir  string `yaml:"sheets_dir"`
	Watermark  string `yaml:"watermark"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Model: ModelConfig{
			Temperature: 0.05,
			MaxTokens:   1024,
		},
		Index: IndexConfig{
			Path: "index.bin",
			TopK: 5,
		},
		Security: SecurityConfig{
			MaxQueryLength: 1000,
			RateLimit:      30,
		},
		Data: DataConfig{
			DocsDir:   "documents",
			Watermark: "www.psands.com",
		},
	}
}

// Load builds the configuration from defaults, the yaml file at path (when
// it exists) and environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults plus env vars is a valid configuration.
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// DefaultPath returns the first config file that exists out of
// ./config.yaml and ~/.config/pssrag/config.yaml, or "" when neither does.
func DefaultPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pssrag", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	c.Provider = getEnvString("PROVIDER", c.Provider)

	c.Model.APIKey = getEnvString("API_KEY", c.Model.APIKey)
	c.Model.BaseURL = getEnvString("BASE_URL", c.Model.BaseURL)
	c.Model.Name = getEnvString("MODEL", c.Model.Name)
	if c.Provider == ProviderGemini {
		c.Model.APIKey = getEnvString("GEMINI_API_KEY", c.Model.APIKey)
		c.Model.Name = getEnvString("GEMINI_MODEL", c.Model.Name)
	}
	c.Model.MaxTokens = getEnvInt("MAX_TOKENS", c.Model.MaxTokens)

	c.Embedding.APIKey = getEnvString("EMBEDDING_MODEL_API_KEY", c.Embedding.APIKey)
	c.Embedding.BaseURL = getEnvString("EMBEDDING_MODEL_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnvString("EMBEDDING_MODEL", c.Embedding.Model)

	c.Index.Path = getEnvString("INDEX_PATH", c.Index.Path)
	c.Index.TopK = getEnvInt("TOP_K", c.Index.TopK)

	c.Security.MaxQueryLength = getEnvInt("MAX_QUERY_LENGTH", c.Security.MaxQueryLength)
	c.Security.RateLimit = getEnvInt("RATE_LIMIT", c.Security.RateLimit)
	c.Security.RedisAddr = getEnvString("REDIS_ADDR", c.Security.RedisAddr)

	c.Data.DocsDir = getEnvString("DOCS_DIR", c.Data.DocsDir)
	c.Data.HoursCSV = getEnvString("HOURS_CSV", c.Data.HoursCSV)
	c.Data.ResumesDir = getEnvString("RESUMES_DIR", c.Data.ResumesDir)
	c.Data.SheetsDir = getEnvString("SHEETS_DIR", c.Data.SheetsDir)
	c.Data.Watermark = getEnvString("WATERMARK", c.Data.Watermark)
}

// Validate checks that the configuration can actually start the app.
func (c *Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderGemini {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("model API key is required (API_KEY)")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding API key is required (EMBEDDING_MODEL_API_KEY)")
	}
	if c.Data.DocsDir == "" {
		return fmt.Errorf("documents directory is required (DOCS_DIR)")
	}
	return nil
}

// getEnvString reads a string from environment variable
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from environment variable
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return defaultVal
}
