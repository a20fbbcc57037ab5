// Package selector picks the seed examples that prime each new dialogue.
package selector

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kris-hansen/dialogen/utils/dataset"
)

// DefaultRealRatio is the share of seeds drawn from the original pool once
// generated first turns are mixed in.
const DefaultRealRatio = 0.8

// ErrNotEnoughExamples is returned when a pool is smaller than the number of
// examples requested from it.
var ErrNotEnoughExamples = errors.New("not enough examples")

// Policy names a base selection strategy.
type Policy string

const (
	Uniform  Policy = "uniform"
	Balanced Policy = "balanced"
	NoInput  Policy = "no-input"
)

// Policies lists every base policy.
func Policies() []Policy {
	return []Policy{Uniform, Balanced, NoInput}
}

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown selection policy %q (want one of %v)", name, Policies())
}

// Selector draws examples with its own random source.
type Selector struct {
	rng *rand.Rand
}

// New returns a Selector drawing from rng.
func New(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Select applies the base policy p to pool.
func (s *Selector) Select(p Policy, pool []dataset.Example, n int) ([]dataset.Example, error) {
	switch p {
	case Uniform:
		return s.Uniform(pool, n)
	case Balanced:
		return s.Balanced(pool, n)
	case NoInput:
		return s.WithoutInput(pool, n)
	}
	return nil, fmt.Errorf("unknown selection policy %q", p)
}

// Uniform draws n examples uniformly without replacement.
func (s *Selector) Uniform(pool []dataset.Example, n int) ([]dataset.Example, error) {
	return s.sample(pool, n)
}

// Balanced draws n/2 examples that carry an input and the remainder from
// those that do not, then shuffles them together.
func (s *Selector) Balanced(pool []dataset.Example, n int) ([]dataset.Example, error) {
	with, without := dataset.SplitByInput(pool)

	nWith := n / 2
	picked, err := s.sample(with, nWith)
	if err != nil {
		return nil, fmt.Errorf("with input: %w", err)
	}
	rest, err := s.sample(without, n-nWith)
	if err != nil {
		return nil, fmt.Errorf("without input: %w", err)
	}

	out := append(picked, rest...)
	s.shuffle(out)
	return out, nil
}

// WithoutInput draws n examples whose input is absent.
func (s *Selector) WithoutInput(pool []dataset.Example, n int) ([]dataset.Example, error) {
	_, without := dataset.SplitByInput(pool)
	out, err := s.sample(without, n)
	if err != nil {
		return nil, fmt.Errorf("without input: %w", err)
	}
	s.shuffle(out)
	return out, nil
}

// WithGenerated draws round(n*ratio) examples from seeds and the rest from
// generated, then shuffles them together. Halves round to even.
func (s *Selector) WithGenerated(seeds, generated []dataset.Example, n int, ratio float64) ([]dataset.Example, error) {
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("real ratio %v out of range [0, 1]", ratio)
	}

	nReal := int(math.RoundToEven(float64(n) * ratio))
	picked, err := s.sample(seeds, nReal)
	if err != nil {
		return nil, fmt.Errorf("seed pool: %w", err)
	}
	gen, err := s.sample(generated, n-nReal)
	if err != nil {
		return nil, fmt.Errorf("generated pool: %w", err)
	}

	out := append(picked, gen...)
	s.shuffle(out)
	return out, nil
}

func (s *Selector) sample(pool []dataset.Example, n int) ([]dataset.Example, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative sample size %d", n)
	}
	if n > len(pool) {
		return nil, fmt.Errorf("%w: want %d, pool has %d", ErrNotEnoughExamples, n, len(pool))
	}

	out := make([]dataset.Example, n)
	for i, idx := range s.rng.Perm(len(pool))[:n] {
		out[i] = pool[idx]
	}
	return out, nil
}

func (s *Selector) shuffle(examples []dataset.Example) {
	s.rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})
}
