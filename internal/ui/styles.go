package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Color palette shared by the CLI and the chat view.
var (
	Green  = lipgloss.Color("10")
	Red    = lipgloss.Color("9")
	Grey   = lipgloss.Color("8")
	Blue   = lipgloss.Color("4")
	Cyan   = lipgloss.Color("6")
	Yellow = lipgloss.Color("11")
	White  = lipgloss.Color("15")
)

const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	KeyIcon     = "🗝️"
	TitleIcon   = "💬"
)

// Styles are text styles bound to one output's renderer.
type Styles struct {
	renderer *lipgloss.Renderer

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Notice   lipgloss.Style

	// Chat roles
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserText       lipgloss.Style
	SystemText     lipgloss.Style
}

func NewStyles(output *os.File) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,

		Title: r.NewStyle().
			Bold(true).
			Foreground(White),

		Subtitle: r.NewStyle().
			Foreground(Grey),

		Success: r.NewStyle().
			Foreground(Green),

		Error: r.NewStyle().
			Foreground(Red),

		Muted: r.NewStyle().
			Foreground(Grey),

		Bold: r.NewStyle().
			Bold(true),

		Notice: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Blue).
			Padding(0, 1),

		UserLabel: r.NewStyle().
			Bold(true).
			Foreground(Cyan),

		AssistantLabel: r.NewStyle().
			Bold(true).
			Foreground(Green),

		SystemLabel: r.NewStyle().
			Bold(true).
			Foreground(Yellow),

		UserText: r.NewStyle().
			Foreground(White),

		SystemText: r.NewStyle().
			Foreground(Grey),
	}
}

// DefaultStyles returns styles for stderr (default TUI output)
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// ColorProfile reports the color support of the renderer's output.
func (s *Styles) ColorProfile() termenv.Profile {
	return s.renderer.ColorProfile()
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens s to maxLen display columns, ending with an ellipsis
// when there is room for one.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}
