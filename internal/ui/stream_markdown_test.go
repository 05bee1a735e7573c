package ui

import (
	"strings"
	"testing"

	"github.com/samsaffron/sql2pyspark/internal/testutil"
)

func TestSplitStable(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantStable string
	}{
		{"no paragraph yet", "Here is the PySpark", ""},
		{"one paragraph", "Here is the code:\n\nfrom pyspark", "Here is the code:\n\n"},
		{"inside fence", "Code:\n\n```python\ndf = spark.table('t')\n\ndf.show()", "Code:\n\n"},
		{"fence closed", "```python\ndf.count()\n```\n\nDone", "```python\ndf.count()\n```\n\n"},
		{"open code span", "Use `df.filter(\n\nmore", ""},
		{"asterisks ignored", "SELECT COUNT(*) maps to\n\ndf.count()", "SELECT COUNT(*) maps to\n\n"},
		{"underscores ignored", "Column user_id\n\nnext", "Column user_id\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stable, tail := SplitStable(tt.text)
			if stable != tt.wantStable {
				t.Errorf("stable = %q, want %q", stable, tt.wantStable)
			}
			if stable+tail != tt.text {
				t.Errorf("stable+tail does not reassemble the input")
			}
		})
	}
}

func TestWrapPlain(t *testing.T) {
	got := wrapPlain("df.filter(df.age > 30).select('id')", 16)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 16 {
			t.Errorf("line %q longer than 16", line)
		}
	}
	squash := strings.NewReplacer(" ", "", "\n", "")
	if squash.Replace(got) != squash.Replace("df.filter(df.age > 30).select('id')") {
		t.Errorf("wrapping lost text: %q", got)
	}
}

func TestRenderStreamingKeepsTail(t *testing.T) {
	out := RenderStreaming("Intro paragraph.\n\nstill typing", 60)
	if !strings.Contains(testutil.StripANSI(out), "still typing") {
		t.Errorf("tail missing from %q", out)
	}
}
