package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var sqlHighlighter = sync.OnceValue(func() *Highlighter {
	return NewHighlighter("sql")
})

// Highlighter colors source text for a single language.
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// NewHighlighter returns a highlighter for the named language, or nil if
// chroma has no lexer for it.
func NewHighlighter(language string) *Highlighter {
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(lexer), style: style}
}

// HighlightSQL colors a SQL query line by line. Text that fails to lex is
// returned unchanged.
func HighlightSQL(text string) string {
	return sqlHighlighter().Highlight(text)
}

func (h *Highlighter) Highlight(text string) string {
	if h == nil || text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = h.HighlightLine(line)
	}
	return strings.Join(lines, "\n")
}

// HighlightLine applies foreground colors only, leaving the background to
// the terminal.
func (h *Highlighter) HighlightLine(line string) string {
	if h == nil || line == "" {
		return line
	}
	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf strings.Builder
	if err := (&noBgFormatter{style: h.style}).Format(&buf, iterator); err != nil {
		return line
	}
	return buf.String()
}

type noBgFormatter struct {
	style *chroma.Style
}

func (f *noBgFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}
		entry := f.style.Get(token.Type)
		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if len(codes) == 0 {
			if _, err := io.WriteString(w, value); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), value); err != nil {
			return err
		}
	}
	return nil
}
