// Package transcript holds the ordered, append-only list of turns for one
// chat session.
package transcript

import (
	"fmt"
	"iter"
	"sync"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

// Turn is one role-tagged message.
type Turn = llm.Message

// Transcript grows by appends only. Turns are never reordered, edited or
// removed; a new conversation gets a new Transcript.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// New returns a transcript holding the given seed turns, usually either
// nothing or a single system turn.
func New(seed ...Turn) *Transcript {
	return &Transcript{turns: append([]Turn(nil), seed...)}
}

// Append adds turn at the end.
func (t *Transcript) Append(turn Turn) error {
	if !turn.Role.Valid() {
		return fmt.Errorf("transcript: invalid role %q", turn.Role)
	}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return nil
}

// All yields the turns in insertion order. The sequence covers the turns
// present when All was called and can be ranged over any number of times.
func (t *Transcript) All() iter.Seq[Turn] {
	t.mu.RLock()
	n := len(t.turns)
	turns := t.turns[:n:n]
	t.mu.RUnlock()

	return func(yield func(Turn) bool) {
		for _, turn := range turns {
			if !yield(turn) {
				return
			}
		}
	}
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Messages returns a copy of the turns, ready to send to a model.
func (t *Transcript) Messages() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the final turn.
func (t *Transcript) Last() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}
