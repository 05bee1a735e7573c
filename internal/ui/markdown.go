package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// The renderer is cached per width; building one is slow enough to show
// while streaming.
var mdRendererCache struct {
	sync.Mutex
	renderer *glamour.TermRenderer
	width    int
}

// GlamourStyle picks the dark or light glamour theme for the terminal. With
// no color support it returns the plain ASCII theme.
func GlamourStyle() ansi.StyleConfig {
	if termenv.EnvColorProfile() == termenv.Ascii {
		return styles.ASCIIStyleConfig
	}
	if termenv.HasDarkBackground() {
		return styles.DarkStyleConfig
	}
	return styles.LightStyleConfig
}

// RenderMarkdown renders content for the terminal. On error the content is
// returned unchanged.
func RenderMarkdown(content string, width int) string {
	if content == "" {
		return ""
	}
	rendered, err := RenderMarkdownWithError(content, width)
	if err != nil {
		return content
	}
	return rendered
}

func RenderMarkdownWithError(content string, width int) (string, error) {
	mdRendererCache.Lock()
	defer mdRendererCache.Unlock()

	if mdRendererCache.renderer == nil || mdRendererCache.width != width {
		style := GlamourStyle()
		margin := uint(0)
		style.Document.Margin = &margin
		style.Document.BlockPrefix = ""
		style.Document.BlockSuffix = ""
		style.CodeBlock.Margin = &margin

		renderer, err := glamour.NewTermRenderer(
			glamour.WithStyles(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		mdRendererCache.renderer = renderer
		mdRendererCache.width = width
	}

	rendered, err := mdRendererCache.renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rendered), nil
}
