package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider defers client construction to the first request since
// the genai client needs a context.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		model:  chooseModel(model, DefaultGeminiModel),
	}
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("Gemini (%s)", p.model)
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	system, contents, err := buildGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user content provided")
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}

		cfg := &genai.GenerateContentConfig{}
		if system != "" {
			cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}
		if req.MaxOutputTokens > 0 {
			cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
		}
		if req.Temperature > 0 {
			temp := req.Temperature
			cfg.Temperature = &temp
		}

		var usage *Usage
		for resp, err := range client.Models.GenerateContentStream(ctx, chooseModel(req.Model, p.model), contents, cfg) {
			if err != nil {
				return fmt.Errorf("gemini streaming error: %w", err)
			}
			if text := resp.Text(); text != "" {
				events <- Event{Type: EventTextDelta, Text: text}
			}
			if md := resp.UsageMetadata; md != nil {
				usage = &Usage{
					InputTokens:  int(md.PromptTokenCount),
					OutputTokens: int(md.CandidatesTokenCount),
				}
			}
		}
		if usage != nil {
			events <- Event{Type: EventUsage, Use: usage}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func buildGeminiContents(messages []Message) (string, []*genai.Content, error) {
	system, rest := splitSystem(messages)
	out := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		switch msg.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return "", nil, unknownRole(msg.Role)
		}
	}
	return system, out, nil
}
