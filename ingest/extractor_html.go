package ingest

import (
	"bytes"
	"fmt"

	readability "github.com/go-shiori/go-readability"
)

var _ Extractor = (*HTMLExtractor)(nil)

// HTMLExtractor extracts readable article text from HTML pages, dropping
// navigation, scripts, and boilerplate.
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

func (e *HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), nil)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return normalizeText(article.TextContent), nil
}
