// Package normalize turns generated data into ShareGPT style conversations
// and converts their text to Traditional Chinese (Taiwan) phrasing.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/fileutil"
	"github.com/longbridgeapp/opencc"
)

// DefaultConversion converts Simplified Chinese to Taiwan standard with
// Taiwanese phrases.
const DefaultConversion = "s2twp"

const (
	FromHuman = "human"
	FromGPT   = "gpt"
)

// Converter rewrites text into another script.
type Converter interface {
	Convert(text string) (string, error)
}

// NewOpenCC returns an OpenCC converter for the named conversion.
func NewOpenCC(conversion string) (Converter, error) {
	cc, err := opencc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenCC conversion %s: %w", conversion, err)
	}
	return cc, nil
}

// Message is one ShareGPT message.
type Message struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

// Conversation holds the original messages and their converted copy.
type Conversation struct {
	Conversations []Message `json:"conversations"`
	Converted     []Message `json:"converted_conversations,omitempty"`
}

// FromDataset interleaves each record's instructions and outputs.
func FromDataset(ds dataset.Dataset) []Conversation {
	out := make([]Conversation, 0, len(ds))
	for _, rec := range ds {
		msgs := make([]Message, 0, 2*len(rec.Conversation))
		for _, t := range rec.Conversation {
			msgs = append(msgs,
				Message{From: FromHuman, Value: t.Instruction},
				Message{From: FromGPT, Value: t.Output},
			)
		}
		out = append(out, Conversation{Conversations: msgs})
	}
	return out
}

// FromRewrites pairs the instructions and responses of records that have
// responses. Unanswered records and conversations that end up empty are
// dropped.
func FromRewrites(recs []dataset.RewriteRecord) []Conversation {
	var out []Conversation
	for _, rec := range recs {
		if rec.Responses == nil {
			continue
		}
		n := min(len(rec.Instructions), len(rec.Responses))
		if n == 0 {
			continue
		}
		msgs := make([]Message, 0, 2*n)
		for i := 0; i < n; i++ {
			msgs = append(msgs,
				Message{From: FromHuman, Value: rec.Instructions[i]},
				Message{From: FromGPT, Value: rec.Responses[i]},
			)
		}
		out = append(out, Conversation{Conversations: msgs})
	}
	return out
}

// Convert fills Converted for every conversation. tick, when set, runs once
// per conversation.
func Convert(cc Converter, convs []Conversation, tick func()) error {
	for i := range convs {
		converted := make([]Message, len(convs[i].Conversations))
		for j, m := range convs[i].Conversations {
			value, err := cc.Convert(m.Value)
			if err != nil {
				return fmt.Errorf("conversation %d message %d: %w", i, j, err)
			}
			converted[j] = Message{From: m.From, Value: value}
		}
		convs[i].Converted = converted
		if tick != nil {
			tick()
		}
	}
	return nil
}

// EncodeJSONL writes one conversation per line without escaping non-ASCII
// or HTML characters.
func EncodeJSONL(convs []Conversation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, c := range convs {
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// WriteJSONL replaces path with the JSONL encoding of convs.
func WriteJSONL(path string, convs []Conversation) error {
	data, err := EncodeJSONL(convs)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0644)
}

// LengthCount is one bucket of a message-count histogram.
type LengthCount struct {
	Messages      int
	Conversations int
}

// LengthHistogram counts conversations by number of messages, shortest first.
func LengthHistogram(convs []Conversation) []LengthCount {
	counts := map[int]int{}
	for _, c := range convs {
		counts[len(c.Conversations)]++
	}

	out := make([]LengthCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, LengthCount{Messages: n, Conversations: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Messages < out[j].Messages })
	return out
}
