// Package chat runs the tool-augmented advisory dialogue: it takes a
// conversation history, lets the model consult the knowledge base through
// registered tools, and streams the reply back.
package chat

import (
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Wire roles accepted in conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

var (
	ErrNoMessages     = errors.New("conversation has no messages")
	ErrUnknownRole    = errors.New("unknown message role")
	ErrEmptyMessage   = errors.New("message has no content")
	ErrLastNotUser    = errors.New("conversation must end with a user message")
	ErrGenerateFailed = errors.New("model generation failed")
)

// Message is one turn of conversation history as it appears on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toAIMessages validates history and converts it to Genkit messages. The
// "assistant" alias is accepted for model turns since several clients send
// it.
func toAIMessages(history []Message) ([]*ai.Message, error) {
	if len(history) == 0 {
		return nil, ErrNoMessages
	}

	msgs := make([]*ai.Message, len(history))
	for i, m := range history {
		if m.Content == "" {
			return nil, fmt.Errorf("message %d: %w", i, ErrEmptyMessage)
		}
		switch m.Role {
		case RoleUser:
			msgs[i] = ai.NewUserMessage(ai.NewTextPart(m.Content))
		case RoleModel, "assistant":
			msgs[i] = ai.NewModelMessage(ai.NewTextPart(m.Content))
		case RoleTool:
			msgs[i] = &ai.Message{
				Role:    ai.RoleTool,
				Content: []*ai.Part{ai.NewTextPart(m.Content)},
			}
		default:
			return nil, fmt.Errorf("message %d: %w: %q", i, ErrUnknownRole, m.Role)
		}
	}

	if history[len(history)-1].Role != RoleUser {
		return nil, ErrLastNotUser
	}
	return msgs, nil
}
