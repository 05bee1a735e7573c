package chat

import (
	"context"
	"slices"
	"sync"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

// LocalBackend runs the session in process.
type LocalBackend struct {
	newSession func() *session.Session

	mu   sync.Mutex
	sess *session.Session
}

// NewLocalBackend starts a session from factory and uses it again for
// Reset.
func NewLocalBackend(factory func() *session.Session) *LocalBackend {
	return &LocalBackend{newSession: factory, sess: factory()}
}

// Session returns the active session.
func (b *LocalBackend) Session() *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess
}

func (b *LocalBackend) Name() string {
	return b.Session().AdapterName()
}

func (b *LocalBackend) Send(ctx context.Context, text string) (<-chan StreamEvent, error) {
	sess := b.Session()
	if sess.State() == session.Responding {
		return nil, session.ErrBusy
	}
	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		reply, err := sess.Submit(ctx, text, func(fragment string) {
			select {
			case ch <- StreamEvent{Type: StreamText, Text: fragment}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			ch <- StreamEvent{Type: StreamError, Err: err}
			return
		}
		ch <- StreamEvent{Type: StreamDone, Text: reply}
	}()
	return ch, nil
}

func (b *LocalBackend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess.State() == session.Responding {
		return session.ErrBusy
	}
	b.sess = b.newSession()
	return nil
}

func (b *LocalBackend) Turns() []llm.Message {
	return slices.Collect(b.Session().Turns())
}

// Close is a no-op; the caller owns the adapter.
func (b *LocalBackend) Close() error {
	return nil
}

var _ Backend = (*LocalBackend)(nil)
