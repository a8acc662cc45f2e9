package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown parses a Markdown file and walks the AST collecting plain
// text, so headings markers, emphasis and link syntax don't pollute the
// retrieval index. The whole file is treated as a single page.
func extractMarkdown(path string) ([]Page, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.CodeBlock:
			writeSegments(&buf, source, t.Lines())
		case *ast.FencedCodeBlock:
			writeSegments(&buf, source, t.Lines())
		case *ast.AutoLink:
			buf.Write(t.URL(source))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walking markdown %s: %w", path, err)
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: out}}, nil
}

// writeSegments appends the raw source lines of a code block.
func writeSegments(buf *strings.Builder, source []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
}
