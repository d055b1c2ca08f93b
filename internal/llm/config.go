package llm

import (
	"fmt"
	"time"
)

// Default connection settings.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4.1-mini"
)

// Config contains configuration for a completion client.
type Config struct {
	// APIKey is the provider API key
	APIKey string

	// BaseURL is the OpenAI-compatible API base URL
	// Default: https://openrouter.ai/api/v1
	BaseURL string

	// DefaultModel is the model to use when a request names none
	DefaultModel string

	// Timeout is the HTTP request timeout
	// Default: 60 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of structured-output attempts
	// Default: 3
	MaxRetries int
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BaseURL is required")
	}

	if c.DefaultModel == "" {
		return fmt.Errorf("DefaultModel is required")
	}

	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}
