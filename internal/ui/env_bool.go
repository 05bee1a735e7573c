package ui

import (
	"os"
	"strings"
)

// ParseBoolDefault parses a boolean-like value. Unknown or empty input
// returns defaultValue.
func ParseBoolDefault(raw string, defaultValue bool) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "yes", "on", "y":
		return true
	case "0", "false", "no", "off", "n":
		return false
	default:
		return defaultValue
	}
}

// EnvBool reads a boolean environment variable.
func EnvBool(name string, defaultValue bool) bool {
	return ParseBoolDefault(os.Getenv(name), defaultValue)
}

// MarkdownEnabled reports whether replies are rendered as markdown and
// queries highlighted. SQL2PYSPARK_PLAIN=1 or any NO_COLOR value turns it
// off.
func MarkdownEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return !EnvBool("SQL2PYSPARK_PLAIN", false)
}
