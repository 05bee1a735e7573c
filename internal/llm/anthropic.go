package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	anthropicMaxTokens    = 4096
)

type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		client: &client,
		model:  chooseModel(model, DefaultAnthropicModel),
	}
}

func (p *AnthropicProvider) Name() string {
	return fmt.Sprintf("Anthropic (%s)", p.model)
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	system, messages, err := buildAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no user content provided")
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		maxTokens := int64(anthropicMaxTokens)
		if req.MaxOutputTokens > 0 {
			maxTokens = int64(req.MaxOutputTokens)
		}
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(chooseModel(req.Model, p.model)),
			MaxTokens: maxTokens,
			Messages:  messages,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(req.Temperature))
		}

		var usage Usage
		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()
		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					events <- Event{Type: EventTextDelta, Text: delta.Text}
				}
			case anthropic.MessageDeltaEvent:
				usage.OutputTokens = int(ev.Usage.OutputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic streaming error: %w", err)
		}
		events <- Event{Type: EventUsage, Use: &usage}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

// buildAnthropicMessages moves system turns into the dedicated system
// parameter and converts the rest.
func buildAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	system, rest := splitSystem(messages)
	out := make([]anthropic.MessageParam, 0, len(rest))
	for _, msg := range rest {
		switch msg.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return "", nil, unknownRole(msg.Role)
		}
	}
	return system, out, nil
}
