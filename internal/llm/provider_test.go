package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseProviderModel(t *testing.T) {
	tests := []struct {
		input        string
		wantProvider string
		wantModel    string
	}{
		{"", "openai", ""},
		{"openai", "openai", ""},
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"Anthropic:claude-sonnet-4-5", "anthropic", "claude-sonnet-4-5"},
		{"openai-compat:meta-llama/llama-3.1-8b-instruct:free", "openai-compat", "meta-llama/llama-3.1-8b-instruct:free"},
		{"  gemini  ", "gemini", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			provider, model := ParseProviderModel(tt.input)
			if provider != tt.wantProvider || model != tt.wantModel {
				t.Errorf("ParseProviderModel(%q) = (%q, %q), want (%q, %q)", tt.input, provider, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestNewRemoteProviderMissingCredential(t *testing.T) {
	for _, provider := range Providers() {
		if provider == "debug" {
			continue
		}
		t.Run(provider, func(t *testing.T) {
			_, err := NewRemoteProvider(RemoteConfig{Provider: provider, APIKey: "  ", BaseURL: "http://localhost"})
			if !errors.Is(err, ErrMissingCredential) {
				t.Fatalf("err = %v, want ErrMissingCredential", err)
			}
		})
	}
}

func TestNewRemoteProvider(t *testing.T) {
	tests := []struct {
		cfg      RemoteConfig
		wantName string
	}{
		{RemoteConfig{APIKey: "k"}, "OpenAI (gpt-3.5-turbo)"},
		{RemoteConfig{Provider: "openai:gpt-4o", APIKey: "k"}, "OpenAI (gpt-4o)"},
		{RemoteConfig{Provider: "openai", Model: "gpt-4.1", APIKey: "k"}, "OpenAI (gpt-4.1)"},
		{RemoteConfig{Provider: "anthropic", APIKey: "k"}, "Anthropic (" + DefaultAnthropicModel + ")"},
		{RemoteConfig{Provider: "gemini", APIKey: "k"}, "Gemini (" + DefaultGeminiModel + ")"},
		{RemoteConfig{Provider: "openai-compat:m", APIKey: "k", BaseURL: "http://localhost:1234/v1"}, "OpenAI-compatible (m)"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			p, err := NewRemoteProvider(tt.cfg)
			if err != nil {
				t.Fatalf("NewRemoteProvider: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestNewRemoteProviderErrors(t *testing.T) {
	if _, err := NewRemoteProvider(RemoteConfig{Provider: "openai-compat", APIKey: "k"}); err == nil {
		t.Error("expected error for openai-compat without base_url")
	}
	if _, err := NewRemoteProvider(RemoteConfig{Provider: "bogus", APIKey: "k"}); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("err = %v, want unknown provider", err)
	}
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter(AdapterConfig{Backend: BackendRemote, Remote: RemoteConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	if _, ok := a.(*RemoteAdapter); !ok {
		t.Errorf("remote adapter type = %T", a)
	}

	a, err = NewAdapter(AdapterConfig{Backend: BackendLocal, Local: LocalConfig{Model: "/models/tiny.gguf"}})
	if err != nil {
		t.Fatalf("local: %v", err)
	}
	local, ok := a.(*LocalAdapter)
	if !ok {
		t.Fatalf("local adapter type = %T", a)
	}
	if local.Name() != "local (tiny.gguf)" {
		t.Errorf("Name() = %q", local.Name())
	}
	if local.MaxLength() != DefaultMaxLength {
		t.Errorf("MaxLength() = %d, want %d", local.MaxLength(), DefaultMaxLength)
	}
	if local.gen.Loaded() {
		t.Error("local model loaded before first generation")
	}

	shared := NewLocalModel(LocalConfig{Model: "/models/tiny.gguf"})
	for i := 0; i < 2; i++ {
		a, err = NewAdapter(AdapterConfig{Backend: BackendLocal, Model: shared})
		if err != nil {
			t.Fatalf("local with shared model: %v", err)
		}
		if got := a.(*LocalAdapter).Model(); got != shared {
			t.Errorf("adapter %d built its own model loader", i+1)
		}
	}

	if _, err := NewAdapter(AdapterConfig{Backend: BackendRemote}); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("remote without key: err = %v", err)
	}
	if _, err := NewAdapter(AdapterConfig{Backend: "cloud"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCredentialEnv(t *testing.T) {
	if got := CredentialEnv("openai"); got != "OPENAI_API_KEY" {
		t.Errorf("openai = %q", got)
	}
	if got := CredentialEnv("anthropic"); got != "ANTHROPIC_API_KEY" {
		t.Errorf("anthropic = %q", got)
	}
	if got := CredentialEnv("gemini"); got != "GEMINI_API_KEY" {
		t.Errorf("gemini = %q", got)
	}
}

func TestMockProviderExhausted(t *testing.T) {
	p := NewMockProvider("mock")
	if _, err := p.Stream(context.Background(), Request{}); err == nil {
		t.Fatal("expected error when no turns are configured")
	}
	if p.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", p.CallCount())
	}
}
