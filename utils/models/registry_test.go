package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCreate(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"anthropic", "google", "openai"}, r.Names())

	tests := []struct {
		tag  string
		want string
	}{
		{"claude", "anthropic"},
		{"anthropic", "anthropic"},
		{"openai", "openai"},
		{"OpenAI", "openai"},
		{"gemini", "google"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			p, err := r.Create(tt.tag, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := DefaultRegistry().Create("llama", Options{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	factory := func(Options) Provider { return NewOpenAIProvider(Options{}) }
	require.NoError(t, r.Register(ProviderMetadata{Name: "x", Aliases: []string{"y"}}, factory))
	assert.Error(t, r.Register(ProviderMetadata{Name: "x"}, factory))
	assert.Error(t, r.Register(ProviderMetadata{Name: "z", Aliases: []string{"y"}}, factory))
	assert.Error(t, r.Register(ProviderMetadata{}, factory))
}

func TestFindProvider(t *testing.T) {
	r := DefaultRegistry()

	name, err := r.FindProvider("claude-3-sonnet-20240229")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", name)

	name, err = r.FindProvider("gpt-4-0125-preview")
	require.NoError(t, err)
	assert.Equal(t, "openai", name)

	name, err = r.FindProvider("gemini-1.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "google", name)

	_, err = r.FindProvider("mistral-large")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	md := r.Metadata()
	require.Len(t, md, 3)
	assert.Equal(t, "google", md[2].Name)
}

type stubProvider struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) SupportsModel(model string) bool { return model == "stub-model" }
func (s *stubProvider) Configure(string) error          { return nil }

func (s *stubProvider) Chat(ctx context.Context, _ string, _ []Message) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestSessionChat(t *testing.T) {
	stub := &stubProvider{reply: "answer"}
	s, err := NewSession(stub, "stub-model", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub-model", s.Model())

	out, err := s.Chat(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestSessionRejectsUnsupportedModel(t *testing.T) {
	_, err := NewSession(&stubProvider{}, "gpt-4", time.Second, nil)
	assert.Error(t, err)

	_, err = NewSession(nil, "gpt-4", time.Second, nil)
	assert.Error(t, err)
}

func TestSessionBlankOutput(t *testing.T) {
	s, err := NewSession(&stubProvider{reply: "  \n"}, "stub-model", time.Second, nil)
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestSessionTimeout(t *testing.T) {
	s, err := NewSession(&stubProvider{reply: "late", delay: time.Second}, "stub-model", 10*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
