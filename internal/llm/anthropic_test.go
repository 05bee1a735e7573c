package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestBuildAnthropicMessages(t *testing.T) {
	system, msgs, err := buildAnthropicMessages([]Message{
		SystemText(ConversionRules),
		UserText("SELECT * FROM t"),
		AssistantText("df.select('*')"),
		UserText("SELECT a FROM t WHERE b=1"),
	})
	if err != nil {
		t.Fatalf("buildAnthropicMessages: %v", err)
	}
	if system != ConversionRules {
		t.Fatalf("system not moved out of the message list")
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, want)
		}
	}
}

func TestBuildAnthropicMessagesRejectsUnknownRole(t *testing.T) {
	_, _, err := buildAnthropicMessages([]Message{{Role: "tool", Content: "x"}})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestBuildGeminiContents(t *testing.T) {
	system, contents, err := buildGeminiContents([]Message{
		SystemText("rules"),
		UserText("SELECT 1"),
		AssistantText("df"),
	})
	if err != nil {
		t.Fatalf("buildGeminiContents: %v", err)
	}
	if system != "rules" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 || contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("contents roles wrong: %+v", contents)
	}
}
