package llm

import (
	"context"
	"fmt"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Request is what a Provider receives for one completion call.
type Request struct {
	Model           string
	Messages        []Message
	MaxOutputTokens int
	Temperature     float32
}

// EventType identifies the kind of stream event.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventUsage     EventType = "usage"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Usage reports token counts for a completed call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Event is one item delivered by a Stream.
type Event struct {
	Type EventType
	Text string
	Use  *Usage
	Err  error
}

// Stream delivers events until Recv returns io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider is a remote completion service that streams its output.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Adapter turns a transcript into response text. onFragment receives each
// piece of output as soon as it is available and may be nil.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, transcript []Message, onFragment func(string)) (string, error)
}

// splitSystem separates system turns from the rest of the conversation for
// APIs that take the system prompt as a dedicated parameter.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}

func unknownRole(role Role) error {
	return fmt.Errorf("unsupported message role %q", role)
}
