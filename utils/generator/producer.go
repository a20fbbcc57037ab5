package generator

import (
	"context"

	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/models"
	"github.com/kris-hansen/dialogen/utils/prompts"
)

// Producer creates the text of each dialogue turn. Every call either returns
// usable text or an error; the Generator treats blank text as an error too.
type Producer interface {
	// FirstInstruction writes an opening instruction modeled on examples.
	FirstInstruction(ctx context.Context, examples []dataset.Example) (string, error)
	// NextInstruction writes a follow-up to a dialogue of complete turns.
	NextInstruction(ctx context.Context, dialogue dataset.Dialogue) (string, error)
	// Respond answers the last instruction of dialogue.
	Respond(ctx context.Context, dialogue dataset.Dialogue) (string, error)
}

// LLMProducer produces turns by prompting a chat model.
type LLMProducer struct {
	chat models.Chatter
}

// NewLLMProducer returns a Producer backed by chat.
func NewLLMProducer(chat models.Chatter) *LLMProducer {
	return &LLMProducer{chat: chat}
}

func (p *LLMProducer) FirstInstruction(ctx context.Context, examples []dataset.Example) (string, error) {
	return p.chat.Chat(ctx, []models.Message{
		{Role: models.RoleUser, Content: prompts.FirstInstruction(examples)},
	})
}

func (p *LLMProducer) NextInstruction(ctx context.Context, dialogue dataset.Dialogue) (string, error) {
	return p.chat.Chat(ctx, []models.Message{
		{Role: models.RoleUser, Content: prompts.NextInstruction(dialogue)},
	})
}

// Respond replays the dialogue as alternating user and assistant messages.
func (p *LLMProducer) Respond(ctx context.Context, dialogue dataset.Dialogue) (string, error) {
	return p.chat.Chat(ctx, History(dialogue))
}

// History converts a dialogue into chat messages, skipping outputs not yet
// written.
func History(dialogue dataset.Dialogue) []models.Message {
	messages := make([]models.Message, 0, 2*len(dialogue))
	for _, t := range dialogue {
		if t.Instruction != "" {
			messages = append(messages, models.Message{Role: models.RoleUser, Content: t.Instruction})
		}
		if t.Output != "" {
			messages = append(messages, models.Message{Role: models.RoleAssistant, Content: t.Output})
		}
	}
	return messages
}
