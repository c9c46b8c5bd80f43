package lectern

import (
	"context"
	"fmt"
	"log/slog"
)

// Answer is the result of one assistant query: the response text and the
// sources consulted by tool calls while producing it.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Analytics summarizes the loaded catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Assistant connects an Orchestrator, a tool registry, and a CourseStore
// into the course-materials question-answering surface used by the web
// layer and the CLI.
type Assistant struct {
	orchestrator *Orchestrator
	registry     *ToolRegistry
	store        CourseStore
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithAssistantLogger sets a structured logger. Default discards.
func WithAssistantLogger(l *slog.Logger) AssistantOption {
	return func(a *Assistant) { a.logger = l }
}

// NewAssistant creates an Assistant. The registry may be empty; tools are
// usually added afterwards via AddTool.
func NewAssistant(orchestrator *Orchestrator, store CourseStore, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		orchestrator: orchestrator,
		registry:     NewToolRegistry(),
		store:        store,
		logger:       nopLogger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddTool registers a tool with the assistant.
func (a *Assistant) AddTool(t Tool) {
	a.registry.Add(t)
}

// Ask answers one question about course materials. history is an optional
// rendered previous-conversation block. The returned sources are exactly
// those reported by tool executions during this call; a question answered
// without tools carries none.
func (a *Assistant) Ask(ctx context.Context, question, history string) Answer {
	query := Query{
		Text:     "Answer this question about course materials: " + question,
		History:  history,
		Tools:    a.registry.AllDefinitions(),
		Registry: a.registry,
	}
	text := a.orchestrator.Respond(ctx, query)
	sources := a.registry.LastSources()
	a.logger.Info("question answered", "sources", len(sources))
	return Answer{Text: text, Sources: sources}
}

// Analytics returns catalog statistics for the stats surface.
func (a *Assistant) Analytics(ctx context.Context) (Analytics, error) {
	titles, err := a.store.ListCourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("list course titles: %w", err)
	}
	return Analytics{TotalCourses: len(titles), CourseTitles: titles}, nil
}
