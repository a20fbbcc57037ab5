package models

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var openAIPrefixes = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}

// OpenAIProvider handles OpenAI family of models
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	client  *openai.Client
	logger  *zap.Logger
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(opts Options) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: opts.BaseURL,
		config:  opts.modelConfig(),
		logger:  opts.logger(),
	}
}

// Name returns the provider name
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// debugf prints debug information when the logger is at debug level
func (o *OpenAIProvider) debugf(format string, args ...interface{}) {
	o.logger.Sugar().Debugf("[OpenAI] "+format, args...)
}

// SupportsModel checks if the given model name is supported by OpenAI
func (o *OpenAIProvider) SupportsModel(modelName string) bool {
	return hasPrefix(modelName, openAIPrefixes...)
}

// Configure sets up the provider with necessary credentials
func (o *OpenAIProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: OpenAI provider", ErrMissingAPIKey)
	}
	o.apiKey = apiKey

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.baseURL, "/")
	}
	o.client = openai.NewClientWithConfig(cfg)
	o.debugf("API key configured, base URL %s", cfg.BaseURL)
	return nil
}

// isNewModelSeries checks if the model is part of the newer series (4o and the o-series)
func (o *OpenAIProvider) isNewModelSeries(modelName string) bool {
	modelName = strings.ToLower(modelName)
	return strings.Contains(modelName, "4o") || hasPrefix(modelName, "o1", "o3", "o4")
}

// createChatCompletionRequest creates a ChatCompletionRequest with the appropriate parameters
func (o *OpenAIProvider) createChatCompletionRequest(modelName string, messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: messages,
	}

	if o.isNewModelSeries(modelName) {
		// the newer series reject max_tokens and custom sampling
		req.MaxCompletionTokens = o.config.MaxTokens
		req.Temperature = 1.0
		req.TopP = 1.0
	} else {
		req.MaxTokens = o.config.MaxTokens
		req.Temperature = float32(o.config.Temperature)
		req.TopP = float32(o.config.TopP)
	}

	return req
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// Chat sends the conversation to the chat completions API and returns the reply
func (o *OpenAIProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("%w: OpenAI provider not configured", ErrMissingAPIKey)
	}
	if !o.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid OpenAI model: %s", modelName)
	}

	o.debugf("sending %d messages to %s", len(messages), modelName)

	req := o.createChatCompletionRequest(modelName, toOpenAIMessages(messages))
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned from OpenAI")
	}

	response := resp.Choices[0].Message.Content
	o.debugf("response length %d characters", len(response))
	return response, nil
}
