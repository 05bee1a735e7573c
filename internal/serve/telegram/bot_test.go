package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	actions int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig).Text)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestBot(provider *llm.MockProvider, allowed ...int64) (*Bot, *fakeSender) {
	fs := &fakeSender{}
	b := newBot(fs, Options{
		NewSession: func() *session.Session {
			return session.New(llm.NewRemoteAdapter(provider, ""), session.WithSeed(llm.SeedMessages(llm.BackendRemote)...))
		},
		AllowedUsers: allowed,
		Logger:       zerolog.Nop(),
	})
	return b, fs
}

func textMessage(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID},
	}
}

func commandMessage(chatID, userID int64, command string) *tgbotapi.Message {
	msg := textMessage(chatID, userID, "/"+command)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command) + 1}}
	return msg
}

func TestReplyIsSentAndRecorded(t *testing.T) {
	provider := llm.NewMockProvider("mock").AddTextResponse("df.filter(df.age > 30).select('id')")
	b, fs := newTestBot(provider)

	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT id FROM users WHERE age > 30"))

	sent := fs.messages()
	if len(sent) != 1 || sent[0] != "df.filter(df.age > 30).select('id')" {
		t.Fatalf("sent = %q", sent)
	}
	if fs.actions != 1 {
		t.Errorf("typing actions = %d, want 1", fs.actions)
	}
	if got := b.session(1).Len(); got != 3 {
		t.Errorf("turns = %d, want seed + user + assistant", got)
	}
	last := provider.LastRequest().Messages
	if last[len(last)-1].Content != "SELECT id FROM users WHERE age > 30" {
		t.Errorf("last request turn = %q", last[len(last)-1].Content)
	}
}

func TestChatsAreIndependent(t *testing.T) {
	provider := llm.NewMockProvider("mock").AddTextResponse("one").AddTextResponse("two")
	b, _ := newTestBot(provider)

	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 1"))
	b.handleMessage(context.Background(), textMessage(2, 8, "SELECT 2"))

	if b.Chats() != 2 {
		t.Fatalf("chats = %d, want 2", b.Chats())
	}
	if got := len(provider.LastRequest().Messages); got != 2 {
		t.Errorf("second chat saw %d turns, want seed + user", got)
	}
}

func TestUnauthorizedUser(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	b, fs := newTestBot(provider, 42)

	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 1"))

	sent := fs.messages()
	if len(sent) != 1 || !strings.Contains(sent[0], "not allowed") {
		t.Fatalf("sent = %q", sent)
	}
	if provider.CallCount() != 0 {
		t.Errorf("provider called %d times", provider.CallCount())
	}
}

func TestGenerationError(t *testing.T) {
	provider := llm.NewMockProvider("mock").AddError(errors.New("quota exceeded"))
	b, fs := newTestBot(provider)

	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 1"))

	sent := fs.messages()
	if len(sent) != 1 || !strings.Contains(sent[0], "quota exceeded") {
		t.Fatalf("sent = %q", sent)
	}
}

func TestBusyWhileResponding(t *testing.T) {
	gate := make(chan struct{})
	provider := llm.NewMockProvider("mock").AddTurn(llm.MockTurn{Text: "done", Gate: gate})
	b, fs := newTestBot(provider)

	finished := make(chan struct{})
	go func() {
		b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 1"))
		close(finished)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.session(1).State() != session.Responding {
		if time.Now().After(deadline) {
			t.Fatal("session never started responding")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 2"))
	b.handleMessage(context.Background(), commandMessage(1, 7, "new"))
	close(gate)
	<-finished

	sent := fs.messages()
	if len(sent) != 3 {
		t.Fatalf("sent = %q", sent)
	}
	for _, s := range sent[:2] {
		if !strings.Contains(s, "Still working") {
			t.Errorf("expected busy notice, got %q", s)
		}
	}
	if sent[2] != "done" {
		t.Errorf("reply = %q", sent[2])
	}
}

func TestCommands(t *testing.T) {
	provider := llm.NewMockProvider("mock").AddTextResponse("ok")
	b, fs := newTestBot(provider)

	b.handleMessage(context.Background(), commandMessage(1, 7, "help"))
	b.handleMessage(context.Background(), textMessage(1, 7, "SELECT 1"))
	b.handleMessage(context.Background(), commandMessage(1, 7, "new"))
	b.handleMessage(context.Background(), commandMessage(1, 7, "bogus"))

	sent := fs.messages()
	if len(sent) != 4 {
		t.Fatalf("sent = %q", sent)
	}
	if !strings.Contains(sent[0], "/new") {
		t.Errorf("help = %q", sent[0])
	}
	if !strings.Contains(sent[2], "new conversation") {
		t.Errorf("new = %q", sent[2])
	}
	if !strings.Contains(sent[3], "Unknown command") {
		t.Errorf("unknown = %q", sent[3])
	}
	if b.Chats() != 0 {
		t.Errorf("chats after /new = %d, want 0", b.Chats())
	}
}

func TestBlankMessageIgnored(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	b, fs := newTestBot(provider)

	b.handleMessage(context.Background(), textMessage(1, 7, "   "))

	if len(fs.messages()) != 0 || provider.CallCount() != 0 {
		t.Errorf("blank message produced output")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("short = %q", got)
	}
	text := "line one\nline two\nline three"
	parts := splitMessage(text, 12)
	if strings.Join(parts, "") != text {
		t.Errorf("parts do not reassemble: %q", parts)
	}
	for _, p := range parts {
		if len([]rune(p)) > 12 {
			t.Errorf("part too long: %q", p)
		}
	}
	if parts[0] != "line one\n" {
		t.Errorf("first part = %q, want cut at newline", parts[0])
	}
	if got := splitMessage("ééééé", 2); strings.Join(got, "") != "ééééé" || len(got) != 3 {
		t.Errorf("multibyte split = %q", got)
	}
}
