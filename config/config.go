// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port string

	// CompletionProvider selects the model backing conversation turns:
	// "openai" (default) or "anthropic". Tool decisions and web search always
	// run on OpenAI.
	CompletionProvider string

	OpenAIAPIKey    string
	AnthropicAPIKey string

	DatabaseURL string
	DBPoolSize  int

	DatabricksHost         string
	DatabricksToken        string
	DatabricksEndpointName string
	DatabricksIndexName    string

	InactivityTimeout time.Duration
	MaxTokens         int
	Temperature       float64
	TopP              float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		CompletionProvider: strings.ToLower(getEnv("COMPLETION_PROVIDER", "openai")),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBPoolSize:  getEnvInt("DB_POOL_SIZE", 20),

		DatabricksHost:         getEnv("DATABRICKS_HOST", ""),
		DatabricksToken:        getEnv("DATABRICKS_TOKEN", ""),
		DatabricksEndpointName: getEnv("DATABRICKS_ENDPOINT_NAME", ""),
		DatabricksIndexName:    getEnv("DATABRICKS_INDEX_NAME", ""),

		InactivityTimeout: time.Duration(getEnvInt("INACTIVITY_TIMEOUT_MINUTES", 5)) * time.Minute,
		MaxTokens:         getEnvInt("MAX_TOKENS", 512),
		Temperature:       getEnvFloat("TEMPERATURE", 0.1),
		TopP:              getEnvFloat("TOP_P", 0.2),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY cannot be empty")
	}
	switch c.CompletionProvider {
	case "openai":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY required when COMPLETION_PROVIDER is anthropic")
		}
	default:
		return fmt.Errorf("COMPLETION_PROVIDER must be openai or anthropic, got %q", c.CompletionProvider)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPoolSize <= 0 {
		return fmt.Errorf("DB_POOL_SIZE must be > 0")
	}
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("INACTIVITY_TIMEOUT_MINUTES must be > 0")
	}
	if c.DatabricksHost != "" && c.DatabricksToken == "" {
		return fmt.Errorf("DATABRICKS_TOKEN required when DATABRICKS_HOST is set")
	}
	return nil
}

// VectorSearchEnabled reports whether the company retrieval tool can run.
func (c *Config) VectorSearchEnabled() bool {
	return c.DatabricksHost != "" && c.DatabricksToken != "" && c.DatabricksIndexName != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
