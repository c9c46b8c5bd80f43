package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wicaksana/lectern"
)

// IngestResult holds the outcome of ingesting one course document.
type IngestResult struct {
	CourseTitle string
	ChunkCount  int
	// Skipped is set when the course was already in the store and
	// re-ingestion was not forced.
	Skipped bool
}

// Ingestor provides end-to-end ingestion: extract, parse, chunk, embed,
// store.
type Ingestor struct {
	store      lectern.CourseStore
	embedding  lectern.EmbeddingProvider
	chunker    Chunker
	extractors map[ContentType]Extractor
	batchSize  int
	logger     *slog.Logger
	tracer     lectern.Tracer
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunker replaces the default sentence chunker.
func WithChunker(c Chunker) Option {
	return func(ing *Ingestor) { ing.chunker = c }
}

// WithExtractor registers or replaces the extractor for a content type.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}

// WithBatchSize sets the embedding batch size. Default is 64.
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithLogger sets a structured logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithTracer enables span creation around ingest operations.
func WithTracer(t lectern.Tracer) Option {
	return func(ing *Ingestor) { ing.tracer = t }
}

// NewIngestor creates an Ingestor with the default extractors and chunker.
func NewIngestor(store lectern.CourseStore, emb lectern.EmbeddingProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		embedding: emb,
		chunker:   NewSentenceChunker(),
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeMarkdown:  NewMarkdownExtractor(),
			TypeHTML:      NewHTMLExtractor(),
			TypePDF:       NewPDFExtractor(),
		},
		batchSize: 64,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestFile ingests one course document, detecting the content type from
// the filename extension. force re-ingests a course that already exists;
// otherwise known titles are skipped.
func (ing *Ingestor) IngestFile(ctx context.Context, content []byte, filename string, force bool) (IngestResult, error) {
	if ing.tracer != nil {
		var span lectern.Span
		ctx, span = ing.tracer.Start(ctx, "ingest.file", lectern.StringAttr("file", filepath.Base(filename)))
		defer span.End()
	}

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	ct := ContentTypeFromExtension(ext)
	extractor, ok := ing.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
	}

	defaultTitle := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	script, err := ParseCourseScript(text, defaultTitle)
	if err != nil {
		return IngestResult{}, fmt.Errorf("parse %s: %w", filename, err)
	}

	if !force {
		if _, err := ing.store.GetCourse(ctx, script.Course.Title); err == nil {
			ing.logger.Debug("course already ingested, skipping", "title", script.Course.Title)
			return IngestResult{CourseTitle: script.Course.Title, Skipped: true}, nil
		}
	}

	chunks := ing.buildChunks(script)
	if err := ing.embedChunks(ctx, chunks); err != nil {
		return IngestResult{}, err
	}

	course := script.Course
	course.CreatedAt = lectern.NowUnix()
	titleEmbs, err := ing.embedding.Embed(ctx, []string{course.Title})
	if err != nil {
		return IngestResult{}, fmt.Errorf("embed title: %w", err)
	}
	if len(titleEmbs) > 0 {
		course.TitleEmbedding = titleEmbs[0]
	}

	if err := ing.store.AddCourse(ctx, course, chunks); err != nil {
		return IngestResult{}, fmt.Errorf("store course: %w", err)
	}

	ing.logger.Info("course ingested", "title", course.Title, "lessons", len(course.Lessons), "chunks", len(chunks))
	return IngestResult{CourseTitle: course.Title, ChunkCount: len(chunks)}, nil
}

// IngestDirectory ingests every supported file in dir, in name order.
// Individual file failures are logged and skipped so one bad document
// does not abort a catalog load.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string, force bool) ([]IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var results []IngestResult
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			ing.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		result, err := ing.IngestFile(ctx, content, entry.Name(), force)
		if err != nil {
			ing.logger.Warn("skipping file", "path", path, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// buildChunks chunks the preamble and every lesson. Each chunk content is
// prefixed with its course and lesson so the embedding carries enough
// context to match queries that name either.
func (ing *Ingestor) buildChunks(script CourseScript) []lectern.CourseChunk {
	var chunks []lectern.CourseChunk
	position := 0

	add := func(lessonNumber int, text string) {
		for _, piece := range ing.chunker.Chunk(text) {
			content := fmt.Sprintf("Course %s content: %s", script.Course.Title, piece)
			if lessonNumber != lectern.CourseLevel {
				content = fmt.Sprintf("Course %s Lesson %d content: %s", script.Course.Title, lessonNumber, piece)
			}
			chunks = append(chunks, lectern.CourseChunk{
				ID:           lectern.NewID(),
				CourseTitle:  script.Course.Title,
				LessonNumber: lessonNumber,
				Content:      content,
				Position:     position,
			})
			position++
		}
	}

	if script.Preamble != "" {
		add(lectern.CourseLevel, script.Preamble)
	}
	for _, lesson := range script.Lessons {
		if lesson.Content != "" {
			add(lesson.Number, lesson.Content)
		}
	}
	return chunks
}

// embedChunks fills in chunk embeddings in batches.
func (ing *Ingestor) embedChunks(ctx context.Context, chunks []lectern.CourseChunk) error {
	for start := 0; start < len(chunks); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		embs, err := ing.embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(embs) != len(texts) {
			return fmt.Errorf("embed batch: got %d embeddings for %d texts", len(embs), len(texts))
		}
		for i := range embs {
			chunks[start+i].Embedding = embs[i]
		}
	}
	return nil
}
