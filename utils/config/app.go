// Package config loads dialogen settings from the environment, an optional
// dotenv file, and the YAML provider file written by `dialogen configure`.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig holds secrets and tunables read from the environment.
type AppConfig struct {
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	GoogleAPIKey     string        `env:"GOOGLE_API_KEY"`
	AnthropicBaseURL string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	RequestTimeout   time.Duration `env:"DIALOGEN_REQUEST_TIMEOUT" envDefault:"60s"`
	Temperature      float64       `env:"DIALOGEN_TEMPERATURE" envDefault:"0.7"`
	MaxTokens        int           `env:"DIALOGEN_MAX_TOKENS" envDefault:"2000"`
	DatabaseURL      string        `env:"DIALOGEN_DATABASE_URL"`
}

// LoadAppConfig parses the process environment layered over the dotenv file
// at dotenvPath. The dotenv file is optional and never modifies the process
// environment.
func LoadAppConfig(dotenvPath string) (*AppConfig, error) {
	return loadAppConfig(dotenvPath, os.Environ())
}

func loadAppConfig(dotenvPath string, environ []string) (*AppConfig, error) {
	vars := make(map[string]string)

	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading dotenv file %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	for k, v := range env.ToMap(environ) {
		vars[k] = v
	}

	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("DIALOGEN_REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// APIKey returns the environment key for a canonical provider name.
func (c *AppConfig) APIKey(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "google":
		return c.GoogleAPIKey
	}
	return ""
}

// ResolveAPIKey prefers the key saved by `dialogen configure` and falls back
// to the environment.
func (c *AppConfig) ResolveAPIKey(provider string, saved *ProvidersConfig) string {
	if key := saved.APIKey(provider); key != "" {
		return key
	}
	return c.APIKey(provider)
}
