package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTurn is one scripted reply from MockProvider.
type MockTurn struct {
	Text  string        // chunked into several fragments
	Usage Usage         // reported after the text
	Delay time.Duration // wait before the first fragment
	Error error         // fail the stream instead of replying
	Gate  chan struct{} // when set, block until closed
}

// MockProvider replays scripted turns and records every request. Tests use
// it in place of a network provider.
type MockProvider struct {
	name      string
	turns     []MockTurn
	turnIndex int
	Requests  []Request
	mu        sync.Mutex
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

// AddTurn appends a scripted turn.
func (m *MockProvider) AddTurn(t MockTurn) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return m
}

func (m *MockProvider) AddTextResponse(text string) *MockProvider {
	return m.AddTurn(MockTurn{Text: text})
}

func (m *MockProvider) AddError(err error) *MockProvider {
	return m.AddTurn(MockTurn{Error: err})
}

// CallCount returns how many times Stream was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockProvider) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return Request{}
	}
	return m.Requests[len(m.Requests)-1]
}

func (m *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	m.mu.Lock()
	req.Messages = append([]Message(nil), req.Messages...)
	m.Requests = append(m.Requests, req)

	if m.turnIndex >= len(m.turns) {
		m.mu.Unlock()
		return nil, fmt.Errorf("mock provider: no more turns configured (expected turn %d, have %d)", m.turnIndex, len(m.turns))
	}
	turn := m.turns[m.turnIndex]
	m.turnIndex++
	m.mu.Unlock()

	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if turn.Gate != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-turn.Gate:
			}
		}
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}
		if turn.Error != nil {
			return turn.Error
		}

		for _, chunk := range chunkText(turn.Text, 10) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- Event{Type: EventTextDelta, Text: chunk}:
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- Event{Type: EventUsage, Use: &turn.Usage}:
		}
		return nil
	}), nil
}

// chunkText splits text into pieces of roughly chunkSize bytes, preferring
// to break after a space.
func chunkText(text string, chunkSize int) []string {
	if len(text) == 0 {
		return nil
	}
	var chunks []string
	for len(text) > chunkSize {
		breakPoint := chunkSize
		for i := chunkSize; i > chunkSize/2; i-- {
			if text[i] == ' ' {
				breakPoint = i + 1
				break
			}
		}
		chunks = append(chunks, text[:breakPoint])
		text = text[breakPoint:]
	}
	return append(chunks, text)
}
