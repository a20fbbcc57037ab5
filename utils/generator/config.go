package generator

import (
	"fmt"

	"github.com/kris-hansen/dialogen/utils/selector"
)

// Config controls one generation run.
type Config struct {
	// Target is the total number of records the dataset should hold.
	Target int
	// Turns is the number of complete turns in every record.
	Turns int
	// Examples is the number of seed examples shown per first instruction.
	Examples int
	// Warmup is the number of leading slots that only use the seed pool.
	Warmup int
	// AddToPool mixes generated first turns into selection after warm-up.
	AddToPool bool
	// Policy is the base selection policy.
	Policy selector.Policy
	// RealRatio is the seed share of a mixed selection.
	RealRatio float64
	// MaxTurnAttempts abandons a dialogue after this many consecutive failed
	// attempts at one follow-up turn. Zero retries forever.
	MaxTurnAttempts int
}

// DefaultConfig returns the command line defaults.
func DefaultConfig() Config {
	return Config{
		Target:    1,
		Turns:     3,
		Examples:  6,
		Warmup:    10,
		Policy:    selector.Uniform,
		RealRatio: selector.DefaultRealRatio,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Target < 0 {
		return fmt.Errorf("target must not be negative, got %d", c.Target)
	}
	if c.Turns < 1 {
		return fmt.Errorf("turns must be at least 1, got %d", c.Turns)
	}
	if c.Examples < 0 {
		return fmt.Errorf("examples must not be negative, got %d", c.Examples)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must not be negative, got %d", c.Warmup)
	}
	if c.RealRatio < 0 || c.RealRatio > 1 {
		return fmt.Errorf("real ratio must be within [0, 1], got %v", c.RealRatio)
	}
	if c.MaxTurnAttempts < 0 {
		return fmt.Errorf("max turn attempts must not be negative, got %d", c.MaxTurnAttempts)
	}
	if _, err := selector.ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}
