// Package dataset defines seed examples, dialogues, and the stores that
// persist a generated dataset between runs.
package dataset

import (
	"fmt"
	"strings"
)

// NoInput marks an Example whose instruction needs no extra input.
const NoInput = "None"

// Example is a seed instruction used to prime a new first turn.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
}

// HasInput reports whether the example carries an input. An empty input is
// treated like the NoInput marker.
func (e Example) HasInput() bool {
	return e.Input != "" && e.Input != NoInput
}

// Turn is one instruction and, once answered, its output.
type Turn struct {
	Instruction string `json:"instruction"`
	Output      string `json:"output,omitempty"`
}

// Complete reports whether both sides of the turn are filled.
func (t Turn) Complete() bool {
	return t.Instruction != "" && t.Output != ""
}

// Dialogue is an ordered sequence of turns.
type Dialogue []Turn

// Clone returns a copy that shares no backing array with d.
func (d Dialogue) Clone() Dialogue {
	out := make(Dialogue, len(d))
	copy(out, d)
	return out
}

// Record is a committed dialogue with the seed instructions that produced
// its first turn.
type Record struct {
	Conversation Dialogue `json:"conversation"`
	Seeds        []string `json:"seeds,omitempty"`
}

// Dataset is the ordered list of records persisted by a Store.
type Dataset []Record

// FirstTurns returns the opening turn of every record as an Example, for
// mixing generated seeds into later selections.
func (ds Dataset) FirstTurns() []Example {
	out := make([]Example, 0, len(ds))
	for _, r := range ds {
		if len(r.Conversation) == 0 {
			continue
		}
		out = append(out, Example{Instruction: r.Conversation[0].Instruction, Input: NoInput})
	}
	return out
}

// Validate checks the structural shape of every record: at least one turn
// and no turn missing its instruction or output.
func (ds Dataset) Validate() error {
	for i, r := range ds {
		if len(r.Conversation) == 0 {
			return fmt.Errorf("record %d: empty conversation", i)
		}
		for j, t := range r.Conversation {
			if !t.Complete() {
				return fmt.Errorf("record %d turn %d: incomplete turn", i, j)
			}
		}
	}
	return nil
}

// Instructions lists the instruction of each example.
func Instructions(examples []Example) []string {
	out := make([]string, len(examples))
	for i, e := range examples {
		out[i] = e.Instruction
	}
	return out
}

// SplitByInput partitions examples into those with and without input.
func SplitByInput(examples []Example) (with, without []Example) {
	for _, e := range examples {
		if e.HasInput() {
			with = append(with, e)
		} else {
			without = append(without, e)
		}
	}
	return with, without
}

// LogMessage is one message of a source conversation log.
type LogMessage struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

// Log is a source conversation fed to the rewrite pipeline.
type Log struct {
	Messages []LogMessage `json:"messages"`
}

// UserMessages returns the content of every message sent by the user.
func (l Log) UserMessages() []string {
	var out []string
	for _, m := range l.Messages {
		if strings.EqualFold(m.From, "user") {
			out = append(out, m.Content)
		}
	}
	return out
}

// RewriteRecord is a source log with its rewritten instructions and, once
// answered, the responses to them.
type RewriteRecord struct {
	ID                   int          `json:"id"`
	OriginalConversation []LogMessage `json:"original_conversation"`
	Instructions         []string     `json:"instructions"`
	Responses            []string     `json:"responses,omitempty"`
}

// Answered reports whether responses were recorded for the instructions.
func (r RewriteRecord) Answered() bool {
	return r.Responses != nil && len(r.Responses) == len(r.Instructions)
}
