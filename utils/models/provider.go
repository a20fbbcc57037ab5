// Package models adapts hosted chat-completion backends to a single
// Provider interface.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnknownProvider is returned for a provider tag no factory serves.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrMissingAPIKey is returned when a provider is used unconfigured.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrEmptyOutput is returned when a backend answers with blank text.
	ErrEmptyOutput = errors.New("empty model output")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelConfig represents configuration options for model calls
type ModelConfig struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultModelConfig returns the sampling settings used unless overridden.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: 0.7,
		MaxTokens:   2000,
		TopP:        1.0,
	}
}

// Options are handed to a provider factory.
type Options struct {
	Logger  *zap.Logger
	BaseURL string
	Config  ModelConfig
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) modelConfig() ModelConfig {
	if o.Config == (ModelConfig{}) {
		return DefaultModelConfig()
	}
	return o.Config
}

// Provider represents a model provider (e.g., Anthropic, OpenAI)
type Provider interface {
	Name() string
	SupportsModel(modelName string) bool
	Configure(apiKey string) error
	Chat(ctx context.Context, modelName string, messages []Message) (string, error)
}

// Chatter sends a chat history to a fixed model.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Session binds a configured provider to one model and a per-call timeout.
type Session struct {
	provider Provider
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSession checks that provider serves model and returns a Chatter for it.
func NewSession(provider Provider, model string, timeout time.Duration, logger *zap.Logger) (*Session, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if !provider.SupportsModel(model) {
		return nil, fmt.Errorf("model %s is not served by provider %s", model, provider.Name())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{provider: provider, model: model, timeout: timeout, logger: logger}, nil
}

// Model returns the bound model name.
func (s *Session) Model() string {
	return s.model
}

// Chat sends messages under the session timeout. Blank replies are reported
// as ErrEmptyOutput.
func (s *Session) Chat(ctx context.Context, messages []Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.Chat(ctx, s.model, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyOutput
	}

	s.logger.Debug("chat completed",
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.model),
		zap.Int("messages", len(messages)),
		zap.Int("response_length", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

func hasPrefix(modelName string, prefixes ...string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range prefixes {
		if strings.HasPrefix(modelName, prefix) {
			return true
		}
	}
	return false
}
