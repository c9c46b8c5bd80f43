package lectern

import (
	"context"
	"encoding/json"
)

// Source describes the provenance of retrieved content, for display to the
// end user alongside the answer.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// ToolResult is the outcome of a tool execution. Exactly one of Content or
// Error is meaningful. Sources carry provenance for any retrieved content
// and are accumulated by the dispatching registry.
type ToolResult struct {
	Content string   `json:"content"`
	Error   string   `json:"error,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// Failed reports whether the result is an application-level error.
func (r ToolResult) Failed() bool { return r.Error != "" }

// ErrorText renders the error in the "Error: ..." form the model expects in
// tool-result payloads. Internal routing uses the typed Error field; the
// prefix exists only for the model-facing text format.
func (r ToolResult) ErrorText() string { return "Error: " + r.Error }

// Tool defines a capability the model can invoke: one or more named,
// schema-described functions.
type Tool interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}

// ToolRegistry holds all registered tools, dispatches execution by name,
// and accumulates the Sources recorded by tools during one orchestration
// run. A registry instance supports at most one in-flight run; concurrent
// runs must use separate instances or serialize externally.
type ToolRegistry struct {
	tools   []Tool
	sources []Source
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{}
}

// Add registers a tool.
func (r *ToolRegistry) Add(t Tool) {
	r.tools = append(r.tools, t)
}

// AllDefinitions returns tool definitions from all registered tools.
func (r *ToolRegistry) AllDefinitions() []ToolDefinition {
	var defs []ToolDefinition
	for _, t := range r.tools {
		defs = append(defs, t.Definitions()...)
	}
	return defs
}

// Execute dispatches a tool call by name and accumulates any Sources the
// tool recorded. An unknown name is an application-level error result, not
// a Go error.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	for _, t := range r.tools {
		for _, d := range t.Definitions() {
			if d.Name == name {
				result, err := t.Execute(ctx, name, args)
				if err == nil {
					r.sources = append(r.sources, result.Sources...)
				}
				return result, err
			}
		}
	}
	return ToolResult{Error: "tool '" + name + "' not found"}, nil
}

// LastSources returns the Sources accumulated since the last reset.
func (r *ToolRegistry) LastSources() []Source {
	return r.sources
}

// ResetSources clears the accumulator. The orchestrator resets at the start
// of every registry-backed run; callers reset again after reading.
func (r *ToolRegistry) ResetSources() {
	r.sources = nil
}
