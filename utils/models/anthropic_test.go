package models

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicChat(t *testing.T) {
	var got anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"你好"},{"type":"text","text":"！"}],"stop_reason":"end_turn"}`))
	}))
	defer ts.Close()

	p := NewAnthropicProvider(Options{BaseURL: ts.URL})
	require.NoError(t, p.Configure("test-key"))

	out, err := p.Chat(context.Background(), "claude-3-sonnet-20240229", []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	})
	require.NoError(t, err)
	assert.Equal(t, "你好！", out)

	assert.Equal(t, "claude-3-sonnet-20240229", got.Model)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "again", got.Messages[2].Content[0].Text)
	assert.Equal(t, 2000, got.MaxTokens)
}

func TestAnthropicChatAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer ts.Close()

	p := NewAnthropicProvider(Options{BaseURL: ts.URL})
	require.NoError(t, p.Configure("test-key"))

	_, err := p.Chat(context.Background(), "claude-3-opus-20240229", []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicUnconfigured(t *testing.T) {
	p := NewAnthropicProvider(Options{})
	_, err := p.Chat(context.Background(), "claude-3-opus-20240229", nil)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	assert.ErrorIs(t, p.Configure(""), ErrMissingAPIKey)
}

func TestAnthropicSupportsModel(t *testing.T) {
	p := NewAnthropicProvider(Options{})
	assert.True(t, p.SupportsModel("claude-3-sonnet-20240229"))
	assert.True(t, p.SupportsModel("Claude-3-Opus-20240229"))
	assert.False(t, p.SupportsModel("gpt-4"))
	assert.False(t, p.SupportsModel(""))
}
