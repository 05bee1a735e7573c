package llm

import "strings"

// chooseModel returns requested unless it is blank.
func chooseModel(requested, fallback string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return fallback
}

// truncate keeps at most maxLen runes of s and marks the cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// oneLine collapses runs of whitespace, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lastUserText is the latest user turn as one line, for log records.
func lastUserText(messages []Message) string {
	text, _ := LatestPrompt(messages)
	return oneLine(text)
}
