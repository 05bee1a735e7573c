package ui

import (
	"fmt"
	"strings"
	"time"
)

// StreamingIndicator is the status line shown while a reply is pending.
type StreamingIndicator struct {
	Spinner   string // spinner.View() output
	Phase     string // e.g. "Converting"
	Elapsed   time.Duration
	Fragments int // 0 = don't show
	Model     string
}

func (s StreamingIndicator) Render(styles *Styles) string {
	var b strings.Builder

	b.WriteString(s.Spinner)
	b.WriteString(" ")
	b.WriteString(s.Phase)
	b.WriteString("...")
	if s.Fragments > 0 {
		fmt.Fprintf(&b, " %d chunks |", s.Fragments)
	}
	fmt.Fprintf(&b, " %.1fs", s.Elapsed.Seconds())
	if s.Model != "" {
		b.WriteString(" ")
		b.WriteString(styles.Muted.Render("(" + s.Model + ")"))
	}
	return b.String()
}
