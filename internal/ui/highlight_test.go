package ui

import (
	"testing"

	"github.com/samsaffron/sql2pyspark/internal/testutil"
)

func TestHighlightSQLPreservesText(t *testing.T) {
	queries := []string{
		"SELECT id FROM users WHERE age > 30",
		"SELECT a,\n  COUNT(*)\nFROM t\nGROUP BY a",
		"",
	}
	for _, q := range queries {
		got := HighlightSQL(q)
		if plain := testutil.StripANSI(got); plain != q {
			t.Errorf("HighlightSQL(%q) plain = %q", q, plain)
		}
	}
}

func TestHighlightSQLAddsColor(t *testing.T) {
	got := HighlightSQL("SELECT id FROM users")
	if got == "SELECT id FROM users" {
		t.Error("expected escape sequences in highlighted output")
	}
}

func TestNilHighlighter(t *testing.T) {
	var h *Highlighter
	if got := h.Highlight("SELECT 1"); got != "SELECT 1" {
		t.Errorf("nil highlighter changed text: %q", got)
	}
	if NewHighlighter("no-such-language-xyz") != nil {
		t.Error("unknown language should have no highlighter")
	}
}
