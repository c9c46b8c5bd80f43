// Package coursesearch provides the content-search tool: semantic search
// over ingested course chunks, optionally scoped to a course or lesson.
package coursesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wicaksana/lectern"
)

// SearchTool searches course materials by meaning. Course names are
// resolved fuzzily, so the model can pass a partial title.
type SearchTool struct {
	store     lectern.CourseStore
	embedding lectern.EmbeddingProvider
	topK      int
}

// Option configures a SearchTool.
type Option func(*SearchTool)

// WithTopK sets the number of chunks to retrieve. Default is 5.
func WithTopK(n int) Option {
	return func(s *SearchTool) { s.topK = n }
}

// New creates a SearchTool over the given store and embedding provider.
func New(store lectern.CourseStore, emb lectern.EmbeddingProvider, opts ...Option) *SearchTool {
	s := &SearchTool{store: store, embedding: emb, topK: 5}
	for _, o := range opts {
		o(s)
	}
	return s
}

type searchParams struct {
	Query        string `json:"query" jsonschema:"description=What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"description=Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"description=Specific lesson number to search within (e.g. 1, 3)"`
}

func (s *SearchTool) Definitions() []lectern.ToolDefinition {
	return []lectern.ToolDefinition{{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters:  lectern.SchemaFor[searchParams](),
	}}
}

func (s *SearchTool) Execute(ctx context.Context, _ string, args json.RawMessage) (lectern.ToolResult, error) {
	var params searchParams
	if err := json.Unmarshal(args, &params); err != nil {
		return lectern.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	if params.Query == "" {
		return lectern.ToolResult{Error: "query is required"}, nil
	}

	filter := lectern.ChunkFilter{LessonNumber: params.LessonNumber}
	if params.CourseName != "" {
		title, err := lectern.ResolveCourseName(ctx, params.CourseName, s.store, s.embedding)
		if errors.Is(err, lectern.ErrCourseNotFound) {
			return lectern.ToolResult{Error: "No course found matching '" + params.CourseName + "'"}, nil
		}
		if err != nil {
			return lectern.ToolResult{Error: "course lookup error: " + err.Error()}, nil
		}
		filter.CourseTitle = title
	}

	embs, err := s.embedding.Embed(ctx, []string{params.Query})
	if err != nil {
		return lectern.ToolResult{Error: "embedding error: " + err.Error()}, nil
	}
	if len(embs) == 0 {
		return lectern.ToolResult{Error: "embedding error: no embedding returned"}, nil
	}

	chunks, err := s.store.SearchChunks(ctx, embs[0], s.topK, filter)
	if err != nil {
		return lectern.ToolResult{Error: "search error: " + err.Error()}, nil
	}
	if len(chunks) == 0 {
		return lectern.ToolResult{Content: emptyMessage(filter)}, nil
	}

	return s.format(ctx, chunks), nil
}

// emptyMessage names the active filters so the model can relax them on the
// next attempt instead of retrying the identical call.
func emptyMessage(filter lectern.ChunkFilter) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if filter.CourseTitle != "" {
		fmt.Fprintf(&b, " in course '%s'", filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *filter.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

// format renders each chunk under a bracketed course/lesson header and
// records one source per chunk with the lesson link when the catalog has
// one. Course lookups here are best-effort; a missing course only drops
// the link.
func (s *SearchTool) format(ctx context.Context, chunks []lectern.ScoredChunk) lectern.ToolResult {
	var parts []string
	var sources []lectern.Source
	courses := map[string]lectern.Course{}

	for _, chunk := range chunks {
		header := "[" + chunk.CourseTitle + "]"
		label := chunk.CourseTitle
		if chunk.LessonNumber != lectern.CourseLevel {
			header = fmt.Sprintf("[%s - Lesson %d]", chunk.CourseTitle, chunk.LessonNumber)
			label = fmt.Sprintf("%s - Lesson %d", chunk.CourseTitle, chunk.LessonNumber)
		}
		parts = append(parts, header+"\n"+chunk.Content)

		source := lectern.Source{Text: label}
		course, ok := courses[chunk.CourseTitle]
		if !ok {
			if c, err := s.store.GetCourse(ctx, chunk.CourseTitle); err == nil {
				course, ok = c, true
				courses[chunk.CourseTitle] = c
			}
		}
		if ok {
			if chunk.LessonNumber == lectern.CourseLevel {
				source.URL = course.Link
			} else if lesson, found := course.Lesson(chunk.LessonNumber); found {
				source.URL = lesson.Link
			}
		}
		sources = append(sources, source)
	}

	return lectern.ToolResult{Content: strings.Join(parts, "\n\n"), Sources: sources}
}
