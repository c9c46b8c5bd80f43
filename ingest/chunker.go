package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunker splits text into pieces suitable for embedding.
type Chunker interface {
	Chunk(text string) []string
}

// ChunkerOption configures a chunker.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	maxChars     int
	overlapChars int
}

// WithMaxChars sets the maximum characters per chunk. Default is 800.
func WithMaxChars(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.maxChars = n }
}

// WithOverlapChars sets the overlap between consecutive chunks. Default
// is 100.
func WithOverlapChars(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.overlapChars = n }
}

// SentenceChunker groups whole sentences into overlapping chunks. A chunk
// never splits a sentence unless a single sentence exceeds the chunk size,
// in which case it falls back to word boundaries.
type SentenceChunker struct {
	maxChars     int
	overlapChars int
}

var _ Chunker = (*SentenceChunker)(nil)

// NewSentenceChunker creates a SentenceChunker with the given options.
func NewSentenceChunker(opts ...ChunkerOption) *SentenceChunker {
	cfg := chunkerConfig{maxChars: 800, overlapChars: 100}
	for _, o := range opts {
		o(&cfg)
	}
	return &SentenceChunker{maxChars: cfg.maxChars, overlapChars: cfg.overlapChars}
}

// Chunk splits text into overlapping sentence groups.
func (sc *SentenceChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= sc.maxChars {
		return []string{text}
	}

	var sentences []string
	for _, s := range splitSentences(text) {
		if len(s) > sc.maxChars {
			sentences = append(sentences, splitWords(s, sc.maxChars)...)
		} else {
			sentences = append(sentences, s)
		}
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			needed := len(sentences[j])
			if size > 0 {
				needed++
			}
			if size+needed > sc.maxChars {
				break
			}
			size += needed
			j++
		}
		if j == i {
			j = i + 1
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Step back far enough to carry roughly overlapChars of trailing
		// sentences into the next chunk, always moving forward by at
		// least one sentence.
		next := j
		carried := 0
		for next > i+1 && carried+len(sentences[next-1]) <= sc.overlapChars {
			carried += len(sentences[next-1]) + 1
			next--
		}
		i = next
	}
	return chunks
}

// abbreviations that should NOT end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "fig": true, "vol": true,
}

// splitSentences splits text at sentence-ending punctuation, skipping
// abbreviations (Dr., e.g.) and decimal numbers (3.14).
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	offset := 0

	for i, r := range runes {
		size := utf8.RuneLen(r)
		pos := offset
		offset += size

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && (isDecimalDot(text, pos) || isAbbreviation(text, pos)) {
			continue
		}
		// Sentence ends only when followed by whitespace or end of text.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		s := strings.TrimSpace(text[start:offset])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = offset
	}

	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	return abbreviations[strings.ToLower(text[start:dotPos])]
}

func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	return text[dotPos-1] >= '0' && text[dotPos-1] <= '9' &&
		text[dotPos+1] >= '0' && text[dotPos+1] <= '9'
}

// splitWords breaks an oversized sentence at word boundaries.
func splitWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	var segments []string
	var current strings.Builder

	for _, word := range words {
		needed := len(word)
		if current.Len() > 0 {
			needed += current.Len() + 1
		}
		if needed > maxChars && current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
