package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRemoteAdapterStreamsFragments(t *testing.T) {
	reply := "df.filter(df.age > 30).select('id')"
	provider := NewMockProvider("mock").AddTextResponse(reply)
	adapter := NewRemoteAdapter(provider, "gpt-3.5-turbo")

	transcript := []Message{
		SystemText(ConversionRules),
		UserText("SELECT id FROM users WHERE age > 30"),
	}
	var fragments []string
	got, err := adapter.Generate(context.Background(), transcript, func(s string) {
		fragments = append(fragments, s)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != reply {
		t.Errorf("Generate() = %q, want %q", got, reply)
	}
	if len(fragments) < 2 {
		t.Errorf("expected several fragments, got %d", len(fragments))
	}
	if joined := strings.Join(fragments, ""); joined != got {
		t.Errorf("fragments joined = %q, want %q", joined, got)
	}

	req := provider.LastRequest()
	if req.Model != "gpt-3.5-turbo" {
		t.Errorf("request model = %q", req.Model)
	}
	if len(req.Messages) != len(transcript) {
		t.Fatalf("request carried %d messages, want %d", len(req.Messages), len(transcript))
	}
	for i := range transcript {
		if req.Messages[i] != transcript[i] {
			t.Errorf("message %d = %+v, want %+v", i, req.Messages[i], transcript[i])
		}
	}
}

func TestRemoteAdapterError(t *testing.T) {
	boom := errors.New("rate limited")
	provider := NewMockProvider("mock").AddError(boom)
	adapter := NewRemoteAdapter(provider, "")

	_, err := adapter.Generate(context.Background(), []Message{UserText("SELECT 1")}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestRemoteAdapterDoesNotAliasTranscript(t *testing.T) {
	provider := NewMockProvider("mock").AddTextResponse("ok")
	adapter := NewRemoteAdapter(provider, "")
	transcript := []Message{UserText("SELECT 1")}

	if _, err := adapter.Generate(context.Background(), transcript, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	transcript[0].Content = "changed"
	if provider.LastRequest().Messages[0].Content != "SELECT 1" {
		t.Error("recorded request shares memory with caller transcript")
	}
}

func TestRemoteAdapterDebugLogRedactsKeys(t *testing.T) {
	key := "sk-abcdefghijklmnopqrstuvwxyz123456"
	provider := NewMockProvider("mock").AddTextResponse("df")
	var buf bytes.Buffer
	adapter := NewRemoteAdapter(provider, "").WithDebug(true).WithLogger(zerolog.New(&buf))

	prompt := "SELECT 1 -- api_key=" + key
	if _, err := adapter.Generate(context.Background(), []Message{UserText(prompt)}, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "stream request") {
		t.Fatalf("no request logged:\n%s", out)
	}
	if strings.Contains(out, key) {
		t.Errorf("key leaked into log:\n%s", out)
	}
}
