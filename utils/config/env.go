package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/dialogen/utils/fileutil"
)

// DefaultConfigPath is used when DIALOGEN_CONFIG is unset.
const DefaultConfigPath = "dialogen.yaml"

// Model is a model the user registered for a provider.
type Model struct {
	Name string `yaml:"name"`
}

// Provider represents a provider's configuration
type Provider struct {
	APIKey string  `yaml:"api_key"`
	Models []Model `yaml:"models"`
}

// ProvidersConfig is the YAML file maintained by `dialogen configure`.
type ProvidersConfig struct {
	Providers map[string]*Provider `yaml:"providers"`
}

// GetConfigPath returns the provider config path from DIALOGEN_CONFIG or the default
func GetConfigPath() string {
	if p := os.Getenv("DIALOGEN_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadProvidersConfig reads the provider config at path. A missing file
// yields an empty config.
func LoadProvidersConfig(path string) (*ProvidersConfig, error) {
	cfg := &ProvidersConfig{Providers: make(map[string]*Provider)}

	data, err := fileutil.SafeReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*Provider)
	}
	return cfg, nil
}

// SaveProvidersConfig writes the provider config to path. The file holds
// API keys, so it is only readable by the owner.
func SaveProvidersConfig(path string, cfg *ProvidersConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := fileutil.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// GetProviderConfig retrieves configuration for a specific provider
func (c *ProvidersConfig) GetProviderConfig(name string) (*Provider, error) {
	provider, exists := c.Providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found in configuration", name)
	}
	if provider == nil {
		return nil, fmt.Errorf("provider %s configuration is nil", name)
	}
	return provider, nil
}

// SetAPIKey creates the provider entry if needed and stores its API key.
func (c *ProvidersConfig) SetAPIKey(name, apiKey string) {
	if c.Providers == nil {
		c.Providers = make(map[string]*Provider)
	}
	p, ok := c.Providers[name]
	if !ok || p == nil {
		p = &Provider{}
		c.Providers[name] = p
	}
	p.APIKey = apiKey
}

// AddModelToProvider adds a model to a specific provider
func (c *ProvidersConfig) AddModelToProvider(name string, model Model) error {
	provider, err := c.GetProviderConfig(name)
	if err != nil {
		return err
	}

	for _, m := range provider.Models {
		if m.Name == model.Name {
			return fmt.Errorf("model %s already exists for provider %s", model.Name, name)
		}
	}

	provider.Models = append(provider.Models, model)
	return nil
}

// APIKey returns the stored key for a provider, or "" if none is set.
func (c *ProvidersConfig) APIKey(name string) string {
	if c == nil {
		return ""
	}
	if p, ok := c.Providers[name]; ok && p != nil {
		return p.APIKey
	}
	return ""
}
