// Package ingest turns course documents into stored, embedded chunks.
//
// The pipeline is extract (file bytes to plain text), parse (course
// script to catalog structure), chunk (sentence-aware overlapping
// windows), embed, and store.
package ingest

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor converts raw file content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps file extensions to content types.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// PlainTextExtractor returns content as-is, Unicode-normalized.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return normalizeText(string(content)), nil
}

// normalizeText applies NFC normalization and canonicalizes line endings.
// Course scripts come from several export tools that disagree on both.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}
