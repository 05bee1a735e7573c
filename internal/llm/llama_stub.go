//go:build !llama

package llm

import "context"

// LocalAvailable reports whether this build can load local models.
const LocalAvailable = false

// LlamaConfig describes a GGUF model loaded through llama.cpp.
type LlamaConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
	Temperature float32
}

// LoadLlama always fails in builds without the llama tag.
func LoadLlama(context.Context, LlamaConfig) (Generator, error) {
	return nil, ErrLocalUnavailable
}
