//go:build llama

package llm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-skynet/go-llama.cpp"
)

// LocalAvailable reports whether this build can load local models.
const LocalAvailable = true

// LlamaConfig describes a GGUF model loaded through llama.cpp.
type LlamaConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
	Temperature float32
}

type llamaGenerator struct {
	mu    sync.Mutex
	model *llama.LLama
	cfg   LlamaConfig
}

// LoadLlama loads the model at cfg.ModelPath. Loading is slow and the
// result should be wrapped in a Lazy and reused.
func LoadLlama(_ context.Context, cfg LlamaConfig) (Generator, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("llama: no model path configured (set local.model)")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("llama: %w", err)
	}
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = 512
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	model, err := llama.New(cfg.ModelPath, llama.SetContext(cfg.ContextSize))
	if err != nil {
		return nil, fmt.Errorf("llama.New failed: %w", err)
	}
	return &llamaGenerator{model: model, cfg: cfg}, nil
}

// Generate runs one prediction. llama.cpp yields a single candidate.
func (g *llamaGenerator) Generate(ctx context.Context, prompt string, maxTokens int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out, err := g.model.Predict(prompt,
		llama.SetTokens(maxTokens),
		llama.SetThreads(g.cfg.Threads),
		llama.SetTemperature(g.cfg.Temperature),
	)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (g *llamaGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}
