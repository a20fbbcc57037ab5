// Package generator runs the resumable loop that grows a dataset of
// multi-turn dialogues one committed record at a time.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/models"
	"github.com/kris-hansen/dialogen/utils/selector"
	"go.uber.org/zap"
)

// ErrTurnAttemptsExhausted is returned for a dialogue abandoned after
// Config.MaxTurnAttempts consecutive failures on one turn.
var ErrTurnAttemptsExhausted = errors.New("turn attempts exhausted")

// CommitFunc is called after each record has been persisted. total is the
// dataset length including rec.
type CommitFunc func(rec dataset.Record, total int)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for progress and failures.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRand sets the random source used for example selection.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.selector = selector.New(rng)
		}
	}
}

// WithOnCommit registers a hook run after every persisted record.
func WithOnCommit(fn CommitFunc) Option {
	return func(g *Generator) {
		g.onCommit = fn
	}
}

// Generator owns the in-memory dataset of one run and is its only writer.
type Generator struct {
	producer Producer
	store    dataset.Store
	examples []dataset.Example
	cfg      Config
	selector *selector.Selector
	logger   *zap.Logger
	onCommit CommitFunc
}

// New validates cfg and returns a Generator that reads and writes store.
func New(producer Producer, store dataset.Store, examples []dataset.Example, cfg Config, opts ...Option) (*Generator, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}

	now := uint64(time.Now().UnixNano())
	g := &Generator{
		producer: producer,
		store:    store,
		examples: examples,
		cfg:      cfg,
		selector: selector.New(rand.New(rand.NewPCG(now, now>>1))),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Run loads the stored dataset and adds records until it holds cfg.Target of
// them. Producer failures are logged and retried. Selection and persistence
// failures, and context cancellation, end the run. The returned dataset is
// always the committed one.
func (g *Generator) Run(ctx context.Context) (dataset.Dataset, error) {
	ds, err := g.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	if len(ds) >= g.cfg.Target {
		g.logger.Info("Dataset already complete", zap.Int("records", len(ds)), zap.Int("target", g.cfg.Target))
		return ds, nil
	}

	generated := ds.FirstTurns()
	g.logger.Info("Generating dialogues",
		zap.Int("existing", len(ds)),
		zap.Int("target", g.cfg.Target),
		zap.Int("turns", g.cfg.Turns),
	)

	for len(ds) < g.cfg.Target {
		if err := ctx.Err(); err != nil {
			return ds, err
		}

		slot := len(ds) + 1
		seeds, err := g.selectSeeds(slot, generated)
		if err != nil {
			return ds, fmt.Errorf("failed to select examples for record %d: %w", slot, err)
		}
		g.logger.Debug("Selected examples",
			zap.Int("slot", slot),
			zap.Strings("instructions", dataset.Instructions(seeds)),
		)

		dialogue, err := g.dialogue(ctx, seeds)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ds, ctxErr
			}
			g.logger.Warn("[x] Failed", zap.Int("slot", slot), zap.Error(err))
			continue
		}

		rec := dataset.Record{Conversation: dialogue, Seeds: dataset.Instructions(seeds)}
		ds = append(ds, rec)
		if err := g.store.Save(ctx, ds); err != nil {
			return ds[:len(ds)-1], fmt.Errorf("failed to persist record %d: %w", slot, err)
		}

		generated = append(generated, dataset.Example{Instruction: dialogue[0].Instruction, Input: dataset.NoInput})
		if g.onCommit != nil {
			g.onCommit(rec, len(ds))
		}
	}

	g.logger.Info("Generation finished", zap.Int("records", len(ds)))
	return ds, nil
}

// selectSeeds uses the base policy during warm-up or when pooling is off,
// and mixes in generated first turns afterwards.
func (g *Generator) selectSeeds(slot int, generated []dataset.Example) ([]dataset.Example, error) {
	if slot <= g.cfg.Warmup || !g.cfg.AddToPool {
		return g.selector.Select(g.cfg.Policy, g.examples, g.cfg.Examples)
	}
	return g.selector.WithGenerated(g.examples, generated, g.cfg.Examples, g.cfg.RealRatio)
}

// dialogue builds one complete dialogue. A failure on the opening turn
// abandons it so the caller starts over with fresh examples. A failure on a
// later turn only retries that turn, rolling back its instruction when the
// response fails.
func (g *Generator) dialogue(ctx context.Context, seeds []dataset.Example) (dataset.Dialogue, error) {
	first, err := g.call(func() (string, error) {
		return g.producer.FirstInstruction(ctx, seeds)
	})
	if err != nil {
		return nil, fmt.Errorf("first instruction: %w", err)
	}

	dialogue := dataset.Dialogue{{Instruction: first}}
	answer, err := g.call(func() (string, error) {
		return g.producer.Respond(ctx, dialogue.Clone())
	})
	if err != nil {
		return nil, fmt.Errorf("first response: %w", err)
	}
	dialogue[0].Output = answer
	g.logTurn(dialogue[0])

	failures := 0
	for len(dialogue) < g.cfg.Turns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.cfg.MaxTurnAttempts > 0 && failures >= g.cfg.MaxTurnAttempts {
			return nil, fmt.Errorf("turn %d: %w after %d attempts", len(dialogue)+1, ErrTurnAttemptsExhausted, failures)
		}

		instruction, err := g.call(func() (string, error) {
			return g.producer.NextInstruction(ctx, dialogue.Clone())
		})
		if err != nil {
			failures++
			g.logger.Warn("Next instruction failed, retrying", zap.Int("turn", len(dialogue)+1), zap.Error(err))
			continue
		}

		dialogue = append(dialogue, dataset.Turn{Instruction: instruction})
		answer, err := g.call(func() (string, error) {
			return g.producer.Respond(ctx, dialogue.Clone())
		})
		if err != nil {
			dialogue = dialogue[:len(dialogue)-1]
			failures++
			g.logger.Warn("Response failed, retrying turn", zap.Int("turn", len(dialogue)+1), zap.Error(err))
			continue
		}

		dialogue[len(dialogue)-1].Output = answer
		g.logTurn(dialogue[len(dialogue)-1])
		failures = 0
	}
	return dialogue, nil
}

// call runs one producer request and maps blank text to models.ErrEmptyOutput.
func (g *Generator) call(fn func() (string, error)) (string, error) {
	text, err := fn()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", models.ErrEmptyOutput
	}
	return text, nil
}

func (g *Generator) logTurn(t dataset.Turn) {
	g.logger.Debug("Me => " + t.Instruction)
	g.logger.Debug("AI => " + t.Output)
}
