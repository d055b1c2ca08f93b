package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dal/internal/llm"
	"dal/pkg/schema"
)

// LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// History backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// OpenAI defaults, used when DAL_LLM_PROVIDER=openai.
const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "gpt-4.1-mini"
)

// Config holds the application configuration.
type Config struct {
	LogLevel       string // debug, info, warn, error
	Provider       string // openrouter or openai
	APIKey         string // Required for LLM operations
	BaseURL        string
	Model          string
	HistoryBackend string // memory, file, redis or postgres
	DataDir        string // file backend root
	RedisURL       string
	DatabaseURL    string
	SettingsFile   string // optional YAML editor settings
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	provider := strings.ToLower(getEnvOrDefault("DAL_LLM_PROVIDER", ProviderOpenRouter))
	baseURL, model := llm.DefaultBaseURL, llm.DefaultModel
	keyFallback := "OPENROUTER_API_KEY"
	switch provider {
	case ProviderOpenRouter:
	case ProviderOpenAI:
		baseURL, model = OpenAIBaseURL, OpenAIModel
		keyFallback = "OPENAI_API_KEY"
	default:
		return nil, &ValidationError{Field: "DAL_LLM_PROVIDER", Message: fmt.Sprintf("unknown provider %q", provider)}
	}

	cfg := &Config{
		LogLevel:       logLevel,
		Provider:       provider,
		APIKey:         getEnvOrDefault("DAL_API_KEY", os.Getenv(keyFallback)),
		BaseURL:        getEnvOrDefault("DAL_BASE_URL", baseURL),
		Model:          getEnvOrDefault("DAL_MODEL", model),
		HistoryBackend: strings.ToLower(getEnvOrDefault("DAL_HISTORY_BACKEND", BackendFile)),
		DataDir:        getEnvOrDefault("DAL_DATA_DIR", defaultDataDir()),
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SettingsFile:   os.Getenv("DAL_SETTINGS_FILE"),
	}

	switch cfg.HistoryBackend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, &ValidationError{Field: "DATABASE_URL", Message: "required for the postgres history backend"}
		}
	default:
		return nil, &ValidationError{Field: "DAL_HISTORY_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.HistoryBackend)}
	}

	// The API key is checked when a completer is built, so history
	// commands work without one.
	return cfg, nil
}

// LLMConfig returns the completion client configuration.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		DefaultModel: c.Model,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dal", "history")
	}
	return filepath.Join(".dal", "history")
}

// Settings are the per-session editor settings sent with every analysis.
type Settings struct {
	Tone         schema.ToneSettings `yaml:"tone"`
	CustomPrompt string              `yaml:"custom_prompt" validate:"max=2000"`
}

// Validate checks tone values and the custom prompt length.
func (s Settings) Validate() error {
	if err := schema.Validate(s); err != nil {
		return fieldValidationError(err)
	}
	return nil
}

// LoadSettings reads editor settings from a YAML file. An empty path or a
// missing file yields zero settings.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}
