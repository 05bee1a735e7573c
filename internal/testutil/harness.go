package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

// ChatHarness drives a seeded session backed by a MockProvider and records
// every fragment and completed exchange.
type ChatHarness struct {
	Provider *llm.MockProvider
	Session  *session.Session

	mu        sync.Mutex
	fragments []string
	exchanges []session.Exchange
}

// NewChatHarness returns a harness whose provider replies with replies, in
// order.
func NewChatHarness(replies ...string) *ChatHarness {
	h := &ChatHarness{Provider: llm.NewMockProvider("mock")}
	for _, r := range replies {
		h.Provider.AddTextResponse(r)
	}
	adapter := llm.NewRemoteAdapter(h.Provider, llm.DefaultOpenAIModel)
	h.Session = session.New(adapter,
		session.WithSeed(llm.SeedMessages(llm.BackendRemote)...),
		session.OnExchange(func(ex session.Exchange) {
			h.mu.Lock()
			h.exchanges = append(h.exchanges, ex)
			h.mu.Unlock()
		}),
	)
	return h
}

// Submit sends prompt and records its fragments.
func (h *ChatHarness) Submit(ctx context.Context, prompt string) (string, error) {
	return h.Session.Submit(ctx, prompt, func(f string) {
		h.mu.Lock()
		h.fragments = append(h.fragments, f)
		h.mu.Unlock()
	})
}

// Streamed returns all fragments seen so far, joined.
func (h *ChatHarness) Streamed() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.fragments, "")
}

func (h *ChatHarness) FragmentCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fragments)
}

func (h *ChatHarness) Exchanges() []session.Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]session.Exchange(nil), h.exchanges...)
}
