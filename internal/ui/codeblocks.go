package ui

import (
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PythonLanguages are the fence info strings a PySpark reply is likely to
// use.
var PythonLanguages = []string{"python", "py", "pyspark", "python3"}

// CodeBlocks returns the contents of the fenced code blocks in markdown, in
// order. When languages is non-empty only fences tagged with one of them
// (case-insensitive) are returned.
func CodeBlocks(markdown string, languages ...string) []string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(fence.Language(source)))
		if len(languages) > 0 && !slices.Contains(languages, lang) {
			return ast.WalkSkipChildren, nil
		}
		var b strings.Builder
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		blocks = append(blocks, b.String())
		return ast.WalkSkipChildren, nil
	})
	return blocks
}
