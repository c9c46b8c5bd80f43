// Package outline provides the course-outline tool: full course metadata
// and the lesson list for a fuzzily named course.
package outline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wicaksana/lectern"
)

// OutlineTool returns the stored structure of one course.
type OutlineTool struct {
	store     lectern.CourseStore
	embedding lectern.EmbeddingProvider
}

// New creates an OutlineTool. The embedding provider backs semantic course
// name resolution and may be nil to restrict matching to exact and
// substring lookups.
func New(store lectern.CourseStore, emb lectern.EmbeddingProvider) *OutlineTool {
	return &OutlineTool{store: store, embedding: emb}
}

type outlineParams struct {
	CourseName string `json:"course_name" jsonschema:"description=Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
}

func (o *OutlineTool) Definitions() []lectern.ToolDefinition {
	return []lectern.ToolDefinition{{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course including title, link, and all lessons",
		Parameters:  lectern.SchemaFor[outlineParams](),
	}}
}

func (o *OutlineTool) Execute(ctx context.Context, _ string, args json.RawMessage) (lectern.ToolResult, error) {
	var params outlineParams
	if err := json.Unmarshal(args, &params); err != nil {
		return lectern.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	if params.CourseName == "" {
		return lectern.ToolResult{Error: "course_name is required"}, nil
	}

	title, err := lectern.ResolveCourseName(ctx, params.CourseName, o.store, o.embedding)
	if errors.Is(err, lectern.ErrCourseNotFound) {
		return lectern.ToolResult{Error: "No course found matching '" + params.CourseName + "'"}, nil
	}
	if err != nil {
		return lectern.ToolResult{Error: "course lookup error: " + err.Error()}, nil
	}

	course, err := o.store.GetCourse(ctx, title)
	if err != nil {
		return lectern.ToolResult{Error: "course lookup error: " + err.Error()}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	if course.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", lesson.Number, lesson.Title)
	}

	return lectern.ToolResult{
		Content: b.String(),
		Sources: []lectern.Source{{Text: course.Title, URL: course.Link}},
	}, nil
}
