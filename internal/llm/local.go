package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultMaxLength is the token cap applied to local generations.
const DefaultMaxLength = 200

// ErrLocalUnavailable is returned when the binary was built without a local
// generation backend.
var ErrLocalUnavailable = errors.New("local generation is not available in this build (rebuild with -tags llama)")

// Generator is a pre-loaded text-generation model. Generate may return
// several candidates; only the first is used.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) ([]string, error)
	Close() error
}

// LocalAdapter answers with a locally loaded model. It sees only the most
// recent user turn and returns the whole answer at once.
type LocalAdapter struct {
	name      string
	gen       *Lazy[Generator]
	maxLength int
}

// NewLocalAdapter builds an adapter around a memoized generator. maxLength
// values below 1 fall back to DefaultMaxLength.
func NewLocalAdapter(name string, gen *Lazy[Generator], maxLength int) *LocalAdapter {
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	return &LocalAdapter{name: name, gen: gen, maxLength: maxLength}
}

func (a *LocalAdapter) Name() string {
	return a.name
}

// MaxLength returns the token cap.
func (a *LocalAdapter) MaxLength() int {
	return a.maxLength
}

func (a *LocalAdapter) Generate(ctx context.Context, transcript []Message, onFragment func(string)) (string, error) {
	prompt, ok := LatestPrompt(transcript)
	if !ok {
		return "", errors.New("local: transcript has no user turn")
	}
	gen, err := a.gen.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("local: load model: %w", err)
	}
	candidates, err := gen.Generate(ctx, prompt, a.maxLength)
	if err != nil {
		return "", fmt.Errorf("local: generate: %w", err)
	}
	if len(candidates) == 0 {
		return "", errors.New("local: model returned no candidates")
	}
	text := TruncateTokens(candidates[0], a.maxLength)
	if onFragment != nil && text != "" {
		onFragment(text)
	}
	return text, nil
}

// Model returns the memoized generator behind the adapter.
func (a *LocalAdapter) Model() *Lazy[Generator] {
	return a.gen
}

// Close releases the model if it was loaded.
func (a *LocalAdapter) Close() error {
	return a.gen.Close()
}

// LatestPrompt returns the content of the last user turn.
func LatestPrompt(transcript []Message) (string, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == RoleUser {
			return transcript[i].Content, true
		}
	}
	return "", false
}

// TruncateTokens keeps at most n whitespace-delimited tokens of s. Text that
// already fits is returned unchanged.
func TruncateTokens(s string, n int) string {
	if n < 1 {
		return ""
	}
	count := 0
	inToken := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inToken = false
			continue
		}
		if !inToken {
			inToken = true
			count++
			if count > n {
				return strings.TrimRightFunc(s[:i], unicode.IsSpace)
			}
		}
	}
	return s
}
