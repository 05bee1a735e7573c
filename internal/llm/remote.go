package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/samsaffron/sql2pyspark/internal/logging"
)

// RemoteAdapter sends the whole transcript to a streaming Provider and
// forwards fragments as they arrive.
type RemoteAdapter struct {
	provider  Provider
	model     string
	maxTokens int
	debug     bool
	logger    zerolog.Logger
}

// NewRemoteAdapter wraps provider. model is sent with every request and
// overrides the provider default when non-empty.
func NewRemoteAdapter(provider Provider, model string) *RemoteAdapter {
	return &RemoteAdapter{provider: provider, model: model, logger: zerolog.Nop()}
}

// WithMaxTokens caps the response length requested from the provider.
func (a *RemoteAdapter) WithMaxTokens(n int) *RemoteAdapter {
	a.maxTokens = n
	return a
}

// WithDebug logs a summary of every request and its token usage.
func (a *RemoteAdapter) WithDebug(debug bool) *RemoteAdapter {
	a.debug = debug
	return a
}

func (a *RemoteAdapter) WithLogger(logger zerolog.Logger) *RemoteAdapter {
	a.logger = logger
	return a
}

func (a *RemoteAdapter) Name() string {
	return a.provider.Name()
}

// Generate replays every turn of transcript, in order, to the provider.
// The returned text is exactly the concatenation of the fragments passed
// to onFragment.
func (a *RemoteAdapter) Generate(ctx context.Context, transcript []Message, onFragment func(string)) (string, error) {
	req := Request{
		Model:           a.model,
		Messages:        append([]Message(nil), transcript...),
		MaxOutputTokens: a.maxTokens,
	}
	if a.debug {
		a.logger.Debug().
			Str("provider", a.provider.Name()).
			Str("model", req.Model).
			Int("messages", len(req.Messages)).
			Str("last_user", truncate(logging.Redact(lastUserText(req.Messages)), 200)).
			Msg("stream request")
	}

	start := time.Now()
	stream, err := a.provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	text, usage, err := Collect(stream, onFragment)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.provider.Name(), err)
	}
	if a.debug {
		a.logger.Debug().
			Int("input_tokens", usage.InputTokens).
			Int("output_tokens", usage.OutputTokens).
			Dur("elapsed", time.Since(start)).
			Msg("stream complete")
	}
	return text, nil
}
