package chat

import (
	"context"
	"errors"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

// errBusy is reported by a backend that is still answering.
var errBusy = errors.New("still responding to the previous prompt")

// StreamEventType identifies the kind of StreamEvent.
type StreamEventType int

const (
	StreamText StreamEventType = iota
	StreamDone
	StreamError
)

// StreamEvent is one update for the interaction in flight. A stream ends
// with exactly one StreamDone or StreamError event and is then closed.
type StreamEvent struct {
	Type StreamEventType
	Text string // fragment for StreamText, full reply for StreamDone
	Err  error
}

// Backend abstracts the in-process session and a remote chat server.
type Backend interface {
	Name() string
	// Send starts an interaction. Events arrive on the returned channel.
	Send(ctx context.Context, text string) (<-chan StreamEvent, error)
	// Reset starts a new conversation.
	Reset() error
	// Turns is a snapshot of the transcript.
	Turns() []llm.Message
	Close() error
}
