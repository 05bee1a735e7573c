package ui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// SplitStable splits a partial reply at the last point where everything
// before it can be rendered as finished markdown: the end of a paragraph
// that is outside any ``` fence and has no open `code` span.
//
// Asterisks and underscores are not treated as emphasis markers. SQL and
// PySpark use them constantly (COUNT(*), user_id), so counting them would
// stall rendering.
func SplitStable(text string) (stable, tail string) {
	pos := len(text)
	for {
		paraEnd := strings.LastIndex(text[:pos], "\n\n")
		if paraEnd == -1 {
			return "", text
		}
		cut := paraEnd + 2
		if countFences(text[:cut])%2 == 0 && codeSpansClosed(text[:cut]) {
			return text[:cut], text[cut:]
		}
		pos = paraEnd
	}
}

// RenderStreaming renders the stable part of a partial reply as markdown
// and wraps the rest as plain text.
func RenderStreaming(text string, width int) string {
	stable, tail := SplitStable(text)
	var b strings.Builder
	if stable != "" {
		b.WriteString(strings.TrimRight(RenderMarkdown(stable, width), "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(wrapPlain(tail, width))
	return b.String()
}

// countFences counts lines starting with ``` after indentation.
func countFences(text string) int {
	count := 0
	for line := range strings.Lines(text) {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			count++
		}
	}
	return count
}

// codeSpansClosed reports whether every run of backticks outside fences
// has a matching closing run.
func codeSpansClosed(text string) bool {
	for i := 0; i < len(text); {
		if text[i] != '`' {
			i++
			continue
		}
		start := i
		for i < len(text) && text[i] == '`' {
			i++
		}
		run := text[start:i]
		if len(run) >= 3 {
			// fence; handled by countFences
			continue
		}
		end := strings.Index(text[i:], run)
		if end == -1 {
			return false
		}
		i += end + len(run)
	}
	return true
}

// wrapPlain word-wraps text to width, hard-breaking words that are longer
// than a line.
func wrapPlain(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wrap.String(wordwrap.String(text, width), width)
}
