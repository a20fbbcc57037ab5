package cmd

import (
	"fmt"

	"github.com/kris-hansen/dialogen/utils/config"
	"github.com/kris-hansen/dialogen/utils/models"
	"go.uber.org/zap"
)

// chatSetup is what the LLM backed commands need from configuration.
type chatSetup struct {
	app      *config.AppConfig
	provider string
	session  *models.Session
}

// newChatSetup resolves llm (or, when empty, the model name) to a provider,
// configures its API key, and binds it to model.
func newChatSetup(llm, model, envPath string, logger *zap.Logger) (*chatSetup, error) {
	if model == "" {
		return nil, fmt.Errorf("--model is required")
	}

	app, err := config.LoadAppConfig(envPath)
	if err != nil {
		return nil, err
	}
	saved, err := config.LoadProvidersConfig(config.GetConfigPath())
	if err != nil {
		return nil, err
	}

	registry := models.DefaultRegistry()
	var name string
	if llm != "" {
		name, err = registry.Canonical(llm)
	} else {
		name, err = registry.FindProvider(model)
	}
	if err != nil {
		return nil, err
	}

	provider, err := registry.Create(name, providerOptions(app, name, logger))
	if err != nil {
		return nil, err
	}
	if err := provider.Configure(app.ResolveAPIKey(name, saved)); err != nil {
		return nil, err
	}

	session, err := models.NewSession(provider, model, app.RequestTimeout, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Using model", zap.String("provider", name), zap.String("model", model))
	return &chatSetup{app: app, provider: name, session: session}, nil
}

func providerOptions(app *config.AppConfig, provider string, logger *zap.Logger) models.Options {
	opts := models.Options{
		Logger: logger,
		Config: models.ModelConfig{
			Temperature: app.Temperature,
			MaxTokens:   app.MaxTokens,
			TopP:        1.0,
		},
	}
	switch provider {
	case "anthropic":
		opts.BaseURL = app.AnthropicBaseURL
	case "openai":
		opts.BaseURL = app.OpenAIBaseURL
	}
	return opts
}
