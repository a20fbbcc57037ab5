package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GoogleProvider handles Google AI (Gemini) family of models
type GoogleProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	logger  *zap.Logger
}

// NewGoogleProvider creates a new Google provider instance
func NewGoogleProvider(opts Options) *GoogleProvider {
	return &GoogleProvider{
		baseURL: opts.BaseURL,
		config:  opts.modelConfig(),
		logger:  opts.logger(),
	}
}

// Name returns the provider name
func (g *GoogleProvider) Name() string {
	return "google"
}

// debugf prints debug information when the logger is at debug level
func (g *GoogleProvider) debugf(format string, args ...interface{}) {
	g.logger.Sugar().Debugf("[Google] "+format, args...)
}

// SupportsModel checks if the given model name is supported by Google
func (g *GoogleProvider) SupportsModel(modelName string) bool {
	return hasPrefix(modelName, "gemini-")
}

// Configure sets up the provider with necessary credentials
func (g *GoogleProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: Google provider", ErrMissingAPIKey)
	}
	g.apiKey = apiKey
	return nil
}

// splitHistory converts all but the final message into Gemini chat history
// and returns the final message as the prompt to send.
func splitHistory(messages []Message) ([]*genai.Content, string, string, error) {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	if len(turns) == 0 {
		return nil, "", "", fmt.Errorf("no messages to send")
	}
	last := turns[len(turns)-1]
	if last.Role == RoleAssistant {
		return nil, "", "", fmt.Errorf("last message must come from the user")
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history, last.Content, strings.Join(system, "\n\n"), nil
}

// Chat replays the history into a Gemini chat session and sends the last message
func (g *GoogleProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: Google provider not configured", ErrMissingAPIKey)
	}
	if !g.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid Google model: %s", modelName)
	}

	history, prompt, system, err := splitHistory(messages)
	if err != nil {
		return "", err
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(g.baseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Google AI client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(g.config.Temperature))
	model.SetTopP(float32(g.config.TopP))
	model.SetMaxOutputTokens(int32(g.config.MaxTokens))
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	session := model.StartChat()
	session.History = history

	g.debugf("sending prompt with %d history entries to %s", len(history), modelName)
	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Google AI API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned from Google AI")
	}

	var response strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			response.WriteString(string(text))
		}
	}

	g.debugf("response length %d characters", response.Len())
	return response.String(), nil
}
