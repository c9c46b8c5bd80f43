package lectern

import (
	"context"
	"encoding/json"
	"errors"
)

// mockProvider pops queued completions in order. Requests are recorded so
// tests can assert on transcript shape and call counts.
type mockProvider struct {
	name        string
	completions []Completion // popped in order
	err         error        // returned on every call when set
	idx         int
	requests    []CompletionRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return Completion{}, m.err
	}
	if m.idx >= len(m.completions) {
		return Completion{StopReason: StopEndTurn, Blocks: []Block{TextBlock("exhausted")}}, nil
	}
	c := m.completions[m.idx]
	m.idx++
	return c, nil
}

// textCompletion is a direct answer with no tool use.
func textCompletion(text string) Completion {
	return Completion{StopReason: StopEndTurn, Blocks: []Block{TextBlock(text)}}
}

// toolCompletion requests one tool call, optionally preceded by text.
func toolCompletion(preText, id, name string, args string) Completion {
	var blocks []Block
	if preText != "" {
		blocks = append(blocks, TextBlock(preText))
	}
	blocks = append(blocks, ToolUseBlock(id, name, json.RawMessage(args)))
	return Completion{StopReason: StopToolUse, Blocks: blocks}
}

// --- Tool mocks ---

// searchTool records calls and returns fixed content plus sources.
type searchTool struct {
	calls   []json.RawMessage
	content string
	sources []Source
}

func (s *searchTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "search_course_content", Description: "Search course materials"}}
}

func (s *searchTool) Execute(_ context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	s.calls = append(s.calls, args)
	return ToolResult{Content: s.content, Sources: s.sources}, nil
}

// errTool always returns a Go error from Execute.
type errTool struct{}

func (errTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "fail", Description: "Always fails"}}
}

func (errTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{}, errors.New("tool broken")
}

// typedErrTool returns a typed failure result with a nil Go error.
type typedErrTool struct{}

func (typedErrTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "degrade", Description: "Fails in-band"}}
}

func (typedErrTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{Error: "index unavailable"}, nil
}
