// Package session runs the chat loop for one conversation: take a prompt,
// record it, ask the model, record the answer.
package session

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/logging"
	"github.com/samsaffron/sql2pyspark/internal/transcript"
)

var (
	// ErrBusy is returned by Submit while a previous prompt is still being
	// answered.
	ErrBusy = errors.New("still responding to the previous prompt")
	// ErrEmptyPrompt is returned for blank input. Nothing is recorded.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// State is the position of the chat loop.
type State int

const (
	Idle State = iota
	Responding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Responding:
		return "responding"
	default:
		return "unknown"
	}
}

// Exchange describes a completed interaction.
type Exchange struct {
	SessionID string
	Sequence  int
	Adapter   string
	Prompt    string
	Response  string
	Duration  time.Duration
}

// Session owns one transcript and the adapter that answers it.
type Session struct {
	id         string
	adapter    llm.Adapter
	transcript *transcript.Transcript
	logger     zerolog.Logger
	onExchange func(Exchange)

	mu        sync.Mutex
	state     State
	exchanges int
}

type Option func(*Session)

// WithSeed starts the transcript with the given turns.
func WithSeed(turns ...llm.Message) Option {
	return func(s *Session) {
		s.transcript = transcript.New(turns...)
	}
}

func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// OnExchange registers fn to run after every successful interaction.
func OnExchange(fn func(Exchange)) Option {
	return func(s *Session) {
		s.onExchange = fn
	}
}

func New(adapter llm.Adapter, opts ...Option) *Session {
	s := &Session{
		adapter:    adapter,
		transcript: transcript.New(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = NewID()
	}
	s.logger = s.logger.With().Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) AdapterName() string {
	return s.adapter.Name()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns yields the transcript in order. See transcript.Transcript.All.
func (s *Session) Turns() iter.Seq[llm.Message] {
	return s.transcript.All()
}

func (s *Session) Len() int {
	return s.transcript.Len()
}

// Submit records prompt as a user turn, asks the adapter, streams its
// output to onFragment and records the answer as an assistant turn.
//
// If the adapter fails the user turn stays in the transcript, no assistant
// turn is added and the error is returned. The session is Idle again either
// way.
func (s *Session) Submit(ctx context.Context, prompt string, onFragment func(string)) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.state == Responding {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.state = Responding
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Idle
		s.mu.Unlock()
	}()

	if err := s.transcript.Append(llm.UserText(prompt)); err != nil {
		return "", err
	}

	start := time.Now()
	s.logger.Debug().Str("adapter", s.adapter.Name()).Int("turns", s.transcript.Len()).Msg("generating")

	text, err := s.adapter.Generate(ctx, s.transcript.Messages(), onFragment)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error().Str("error", logging.Redact(err.Error())).Dur("elapsed", elapsed).Msg("generation failed")
		return "", err
	}

	if err := s.transcript.Append(llm.AssistantText(text)); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.exchanges++
	seq := s.exchanges
	s.mu.Unlock()

	s.logger.Info().Int("sequence", seq).Int("chars", len(text)).Dur("elapsed", elapsed).Msg("exchange complete")

	if s.onExchange != nil {
		s.onExchange(Exchange{
			SessionID: s.id,
			Sequence:  seq,
			Adapter:   s.adapter.Name(),
			Prompt:    prompt,
			Response:  text,
			Duration:  elapsed,
		})
	}
	return text, nil
}
