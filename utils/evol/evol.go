// Package evol rewrites the user turns of existing conversation logs into
// harder instructions and collects fresh answers for them.
package evol

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/models"
	"github.com/kris-hansen/dialogen/utils/prompts"
	"go.uber.org/zap"
)

const (
	StageRewrite = "rewrite"
	StageRespond = "respond"
)

// ProgressFunc is called when a stage starts with the number of records it
// will visit. The returned function, if any, is called once per record.
type ProgressFunc func(stage string, total int) func()

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Rewriter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress reports per-stage progress.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Rewriter) {
		r.progress = fn
	}
}

// Rewriter drives a chat model through both rewrite stages.
type Rewriter struct {
	chat     models.Chatter
	method   prompts.Method
	logger   *zap.Logger
	progress ProgressFunc
}

// NewRewriter returns a Rewriter using method for every instruction.
func NewRewriter(chat models.Chatter, method prompts.Method, opts ...Option) (*Rewriter, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat backend cannot be nil")
	}
	if _, err := prompts.ParseMethod(string(method)); err != nil {
		return nil, err
	}

	r := &Rewriter{chat: chat, method: method, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Rewrite returns the harder version of one instruction.
func (r *Rewriter) Rewrite(ctx context.Context, instruction string) (string, error) {
	prompt, err := prompts.Rewrite(r.method, instruction)
	if err != nil {
		return "", err
	}
	return r.send(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
}

// RewriteLog rewrites every user message of log, in order.
func (r *Rewriter) RewriteLog(ctx context.Context, log dataset.Log) ([]string, error) {
	users := log.UserMessages()
	out := make([]string, 0, len(users))
	for i, instruction := range users {
		rewritten, err := r.Rewrite(ctx, instruction)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, rewritten)
	}
	return out, nil
}

// Respond answers instructions as one growing conversation.
func (r *Rewriter) Respond(ctx context.Context, instructions []string) ([]string, error) {
	history := make([]models.Message, 0, 2*len(instructions))
	responses := make([]string, 0, len(instructions))
	for i, instruction := range instructions {
		history = append(history, models.Message{Role: models.RoleUser, Content: instruction})
		answer, err := r.send(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		responses = append(responses, answer)
		history = append(history, models.Message{Role: models.RoleAssistant, Content: answer})
	}
	return responses, nil
}

// Run rewrites every log not yet in store, then answers every record
// without responses. Each finished record is persisted before the next one
// starts. Model failures are logged and left for the next run.
func (r *Rewriter) Run(ctx context.Context, logs []dataset.Log, store *dataset.RewriteStore) ([]dataset.RewriteRecord, error) {
	recs, err := store.Load()
	if err != nil {
		return nil, err
	}
	// stage two holds indexes into recs, and Save sorts in place
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	done := make(map[int]bool, len(recs))
	for _, rec := range recs {
		done[rec.ID] = true
	}
	var pending []int
	for id := range logs {
		if !done[id] {
			pending = append(pending, id)
		}
	}

	r.logger.Info("Rewriting instructions",
		zap.Int("logs", len(logs)),
		zap.Int("existing", len(recs)),
		zap.Int("pending", len(pending)),
		zap.String("method", string(r.method)),
	)

	tick := r.stage(StageRewrite, len(pending))
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return recs, err
		}

		instructions, err := r.RewriteLog(ctx, logs[id])
		tick()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return recs, ctxErr
			}
			r.logger.Warn("Rewrite failed", zap.Int("id", id), zap.Error(err))
			continue
		}

		recs = append(recs, dataset.RewriteRecord{
			ID:                   id,
			OriginalConversation: logs[id].Messages,
			Instructions:         instructions,
		})
		if err := store.Save(recs); err != nil {
			return recs, err
		}
	}

	var unanswered []int
	for i := range recs {
		if !recs[i].Answered() {
			unanswered = append(unanswered, i)
		}
	}

	r.logger.Info("Answering rewritten instructions", zap.Int("pending", len(unanswered)))
	tick = r.stage(StageRespond, len(unanswered))
	for _, i := range unanswered {
		if err := ctx.Err(); err != nil {
			return recs, err
		}

		responses, err := r.Respond(ctx, recs[i].Instructions)
		tick()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return recs, ctxErr
			}
			r.logger.Warn("Answering failed", zap.Int("id", recs[i].ID), zap.Error(err))
			continue
		}

		recs[i].Responses = responses
		if err := store.Save(recs); err != nil {
			return recs, err
		}
	}

	return recs, nil
}

func (r *Rewriter) stage(name string, total int) func() {
	if r.progress != nil {
		if tick := r.progress(name, total); tick != nil {
			return tick
		}
	}
	return func() {}
}

func (r *Rewriter) send(ctx context.Context, messages []models.Message) (string, error) {
	text, err := r.chat.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", models.ErrEmptyOutput
	}
	return text, nil
}
