package evol

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/fileutil"
	"github.com/kris-hansen/dialogen/utils/models"
	"github.com/kris-hansen/dialogen/utils/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat rewrites by tagging the given prompt and answers with the number
// of messages it was sent.
type fakeChat struct {
	mu    sync.Mutex
	calls [][]models.Message
	fail  func(messages []models.Message) error
}

func (f *fakeChat) Chat(_ context.Context, messages []models.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.fail != nil {
		if err := f.fail(messages); err != nil {
			return "", err
		}
	}

	last := messages[len(messages)-1].Content
	if strings.Contains(last, "＃重寫提示＃") {
		start := strings.Index(last, "＃給定提示＃:\n") + len("＃給定提示＃:\n")
		end := strings.LastIndex(last, "\n＃重寫提示＃")
		return "rewritten:" + last[start:end], nil
	}
	return "answer:" + last, nil
}

func sampleLogs() []dataset.Log {
	return []dataset.Log{
		{Messages: []dataset.LogMessage{
			{From: "user", Content: "u0a"},
			{From: "assistant", Content: "x"},
			{From: "user", Content: "u0b"},
		}},
		{Messages: []dataset.LogMessage{{From: "User", Content: "u1"}}},
		{Messages: []dataset.LogMessage{{From: "assistant", Content: "only"}}},
	}
}

func TestRewriteLog(t *testing.T) {
	r, err := NewRewriter(&fakeChat{}, prompts.DeepenZH)
	require.NoError(t, err)

	out, err := r.RewriteLog(context.Background(), sampleLogs()[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"rewritten:u0a", "rewritten:u0b"}, out)

	out, err = r.RewriteLog(context.Background(), sampleLogs()[2])
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRespondGrowsConversation(t *testing.T) {
	chat := &fakeChat{}
	r, err := NewRewriter(chat, prompts.DeepenZH)
	require.NoError(t, err)

	out, err := r.Respond(context.Background(), []string{"i1", "i2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"answer:i1", "answer:i2"}, out)

	require.Len(t, chat.calls, 2)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "i1"},
		{Role: models.RoleAssistant, Content: "answer:i1"},
		{Role: models.RoleUser, Content: "i2"},
	}, chat.calls[1])
}

func TestBlankRewriteIsAnError(t *testing.T) {
	r, err := NewRewriter(blankChat{}, prompts.Deepen)
	require.NoError(t, err)
	_, err = r.Rewrite(context.Background(), "x")
	assert.ErrorIs(t, err, models.ErrEmptyOutput)
}

type blankChat struct{}

func (blankChat) Chat(context.Context, []models.Message) (string, error) { return " ", nil }

func TestNewRewriterRejectsUnknownMethod(t *testing.T) {
	_, err := NewRewriter(&fakeChat{}, prompts.Method("shorten"))
	assert.Error(t, err)
	_, err = NewRewriter(nil, prompts.DeepenZH)
	assert.Error(t, err)
}

func TestRunBothStages(t *testing.T) {
	store := dataset.NewRewriteStore(filepath.Join(t.TempDir(), "rewrites.json"))
	var stages []string
	ticks := map[string]int{}

	r, err := NewRewriter(&fakeChat{}, prompts.DeepenZH, WithProgress(func(stage string, total int) func() {
		stages = append(stages, stage)
		return func() { ticks[stage]++ }
	}))
	require.NoError(t, err)

	recs, err := r.Run(context.Background(), sampleLogs(), store)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{StageRewrite, StageRespond}, stages)
	assert.Equal(t, 3, ticks[StageRewrite])
	assert.Equal(t, 3, ticks[StageRespond])

	assert.Equal(t, 0, recs[0].ID)
	assert.Equal(t, []string{"rewritten:u0a", "rewritten:u0b"}, recs[0].Instructions)
	assert.Equal(t, []string{"answer:rewritten:u0a", "answer:rewritten:u0b"}, recs[0].Responses)
	assert.Equal(t, sampleLogs()[0].Messages, recs[0].OriginalConversation)
	assert.True(t, recs[2].Answered())

	onDisk, err := store.Load()
	require.NoError(t, err)
	require.Len(t, onDisk, 3)
	assert.Equal(t, recs[:2], onDisk[:2])
}

func TestRunSkipsDoneAndRetriesFailures(t *testing.T) {
	store := dataset.NewRewriteStore(filepath.Join(t.TempDir(), "rewrites.json"))
	require.NoError(t, store.Save([]dataset.RewriteRecord{
		{ID: 1, Instructions: []string{"kept"}, Responses: []string{"kept-answer"}},
	}))

	errBackend := errors.New("backend unavailable")
	chat := &fakeChat{fail: func(messages []models.Message) error {
		if strings.Contains(messages[len(messages)-1].Content, "u0b") {
			return errBackend
		}
		return nil
	}}
	r, err := NewRewriter(chat, prompts.DeepenZH)
	require.NoError(t, err)

	recs, err := r.Run(context.Background(), sampleLogs(), store)
	require.NoError(t, err)

	// log 0 failed and is left for the next run, log 1 was already done
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].ID)
	assert.Equal(t, []string{"kept-answer"}, recs[0].Responses)
	assert.Equal(t, 2, recs[1].ID)

	for _, call := range chat.calls {
		assert.NotContains(t, call[len(call)-1].Content, "u1", "finished logs are not rewritten again")
	}

	chat.fail = nil
	recs, err = r.Run(context.Background(), sampleLogs(), store)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{recs[0].ID, recs[1].ID, recs[2].ID})
	assert.True(t, recs[0].Answered())
}

func TestRunAnswersUnsortedExistingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewrites.json")
	store := dataset.NewRewriteStore(path)
	require.NoError(t, store.Save([]dataset.RewriteRecord{{ID: 1, Instructions: []string{"b"}}}))

	// a hand-edited file may be out of order
	recs, err := store.Load()
	require.NoError(t, err)
	recs = append(recs, dataset.RewriteRecord{ID: 0, Instructions: []string{"a"}})
	require.NoError(t, fileutil.WriteJSON(path, recs))

	r, err := NewRewriter(&fakeChat{}, prompts.DeepenZH)
	require.NoError(t, err)
	out, err := r.Run(context.Background(), nil, store)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"answer:a"}, out[0].Responses)
	assert.Equal(t, []string{"answer:b"}, out[1].Responses)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chat := &fakeChat{fail: func([]models.Message) error {
		cancel()
		return context.Canceled
	}}
	r, err := NewRewriter(chat, prompts.DeepenZH)
	require.NoError(t, err)

	_, err = r.Run(ctx, sampleLogs(), dataset.NewRewriteStore(filepath.Join(t.TempDir(), "rewrites.json")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, chat.calls, 1)
}
