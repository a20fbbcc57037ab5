package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicProvider handles Anthropic family of models
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	client  *resty.Client
	logger  *zap.Logger
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(opts Options) *AnthropicProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  opts.modelConfig(),
		logger:  opts.logger(),
	}
}

// debugf prints debug information when the logger is at debug level
func (a *AnthropicProvider) debugf(format string, args ...interface{}) {
	a.logger.Sugar().Debugf("[Anthropic] "+format, args...)
}

// Name returns the provider name
func (a *AnthropicProvider) Name() string {
	return "anthropic"
}

// SupportsModel checks if the given model name is supported by Anthropic
func (a *AnthropicProvider) SupportsModel(modelName string) bool {
	return hasPrefix(modelName, "claude-")
}

// Configure sets up the provider with necessary credentials
func (a *AnthropicProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: Anthropic provider", ErrMissingAPIKey)
	}
	a.apiKey = apiKey
	a.client = resty.New().
		SetBaseURL(a.baseURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")
	a.debugf("API key configured, base URL %s", a.baseURL)
	return nil
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	TopP        float64            `json:"top_p"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicProvider) buildRequest(modelName string, messages []Message) anthropicRequest {
	req := anthropicRequest{
		Model:       modelName,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		TopP:        a.config.TopP,
	}

	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    role,
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// Chat sends the conversation to the Messages API and returns the text reply
func (a *AnthropicProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("%w: Anthropic provider not configured", ErrMissingAPIKey)
	}
	if !a.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid Anthropic model: %s", modelName)
	}

	a.debugf("sending %d messages to %s", len(messages), modelName)

	var out anthropicResponse
	var apiErr anthropicError
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(a.buildRequest(modelName, messages)).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no response content returned from Anthropic")
	}

	a.debugf("response length %d characters, stop reason %s", text.Len(), out.StopReason)
	return text.String(), nil
}
