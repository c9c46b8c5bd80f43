package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var _ Extractor = (*MarkdownExtractor)(nil)

// MarkdownExtractor converts Markdown to plain text by walking the parsed
// AST, keeping block structure (headings and paragraphs become their own
// lines) and dropping all formatting.
type MarkdownExtractor struct{}

// NewMarkdownExtractor creates a Markdown extractor.
func NewMarkdownExtractor() *MarkdownExtractor { return &MarkdownExtractor{} }

func (e *MarkdownExtractor) Extract(content []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	var out strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if out.Len() > 0 {
				out.WriteString("\n")
			}
		case *ast.Text:
			out.Write(v.Segment.Value(content))
			if v.HardLineBreak() || v.SoftLineBreak() {
				out.WriteString(" ")
			}
		case *ast.FencedCodeBlock:
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			out.Write(v.URL(content))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return normalizeText(strings.TrimSpace(out.String())), nil
}
