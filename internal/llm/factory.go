package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// ErrMissingCredential is returned before any client is built when the
// remote backend has no API key.
var ErrMissingCredential = errors.New("missing API key")

// RemoteConfig selects and authenticates a remote provider.
type RemoteConfig struct {
	Provider string // openai, openai-compat, anthropic, gemini, debug
	Model    string
	APIKey   string
	BaseURL  string
	Headers  map[string]string
}

// LocalConfig describes the local model.
type LocalConfig struct {
	Model       string
	MaxLength   int
	Threads     int
	ContextSize int
}

// AdapterConfig is everything NewAdapter needs.
type AdapterConfig struct {
	Backend string
	Remote  RemoteConfig
	Local   LocalConfig
	// Debug logs request summaries to Logger.
	Debug  bool
	Logger zerolog.Logger
	// Model, when set, is reused by the local backend instead of a new
	// loader. It lets repeated switches share one loaded model.
	Model *Lazy[Generator]
}

// NewAdapter builds the adapter for cfg.Backend. The local model is not
// loaded until the first generation.
func NewAdapter(cfg AdapterConfig) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendRemote:
		provider, err := NewRemoteProvider(cfg.Remote)
		if err != nil {
			return nil, err
		}
		adapter := NewRemoteAdapter(provider, cfg.Remote.Model)
		if cfg.Debug {
			adapter.WithDebug(true).WithLogger(cfg.Logger)
		}
		return adapter, nil
	case BackendLocal:
		gen := cfg.Model
		if gen == nil {
			gen = NewLocalModel(cfg.Local)
		}
		return NewLocalAdapter(localName(cfg.Local.Model), gen, cfg.Local.MaxLength), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendRemote, BackendLocal)
	}
}

// NewLocalModel returns an unloaded llama.cpp model for cfg.
func NewLocalModel(cfg LocalConfig) *Lazy[Generator] {
	llamaCfg := LlamaConfig{
		ModelPath:   cfg.Model,
		ContextSize: cfg.ContextSize,
		Threads:     cfg.Threads,
	}
	return NewLazy(func(ctx context.Context) (Generator, error) {
		return LoadLlama(ctx, llamaCfg)
	}).OnClose(func(g Generator) error { return g.Close() })
}

// NewRemoteProvider returns the streaming provider for cfg. It checks the
// credential first so no client exists when the key is missing.
func NewRemoteProvider(cfg RemoteConfig) (Provider, error) {
	providerName, model := ParseProviderModel(cfg.Provider)
	if cfg.Model != "" {
		model = cfg.Model
	}
	if providerName == "debug" {
		return NewDebugProvider(model), nil
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", providerName, ErrMissingCredential)
	}
	switch providerName {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, model), nil
	case "openai-compat":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai-compat: base_url is required")
		}
		return NewOpenAICompatProvider(cfg.BaseURL, cfg.APIKey, model, cfg.Headers), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, model), nil
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
}

// ParseProviderModel splits "provider:model". A bare name is a provider;
// an empty string means openai.
func ParseProviderModel(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "openai", ""
	}
	provider, model, _ := strings.Cut(s, ":")
	return strings.ToLower(provider), model
}

// Providers lists the remote provider names accepted by NewRemoteProvider.
func Providers() []string {
	return []string{"openai", "openai-compat", "anthropic", "gemini", "debug"}
}

// DefaultModel returns the model used when none is configured. Compatible
// servers have no default.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return DefaultOpenAIModel
	case "anthropic":
		return DefaultAnthropicModel
	case "gemini":
		return DefaultGeminiModel
	default:
		return ""
	}
}

// CredentialEnv returns the environment variable conventionally holding the
// API key for provider.
func CredentialEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai-compat":
		return "OPENAI_COMPAT_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func localName(model string) string {
	if model == "" {
		return "local"
	}
	base := model
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return "local (" + base + ")"
}
