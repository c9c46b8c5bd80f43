package lectern

import (
	"context"
	"strings"
	"testing"
)

func TestRespondNoToolUse(t *testing.T) {
	provider := &mockProvider{
		name:        "test",
		completions: []Completion{textCompletion("Paris is the capital of France.")},
	}
	orch := NewOrchestrator(provider)

	got := orch.Respond(context.Background(), Query{Text: "What is the capital of France?"})

	if got != "Paris is the capital of France." {
		t.Errorf("Respond = %q, want direct answer", got)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.requests))
	}
	req := provider.requests[0]
	if len(req.Tools) != 0 || req.AutoToolChoice {
		t.Error("tools offered on a query with none supplied")
	}
	if len(req.Turns) != 1 || req.Turns[0].Role != RoleUser {
		t.Errorf("seed transcript = %+v, want single user turn", req.Turns)
	}
}

func TestRespondTwoToolRounds(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "search_course_content", `{"query":"mcp"}`),
			toolCompletion("", "t2", "search_course_content", `{"query":"mcp lesson 3"}`),
			textCompletion("Lesson 3 covers tool registration."),
		},
	}
	tool := &searchTool{content: "[MCP - Lesson 3]\ntool registration"}
	registry := NewToolRegistry()
	registry.Add(tool)

	orch := NewOrchestrator(provider)
	got := orch.Respond(context.Background(), Query{
		Text:     "What does lesson 3 cover?",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	if got != "Lesson 3 covers tool registration." {
		t.Errorf("Respond = %q", got)
	}
	if len(tool.calls) != 2 {
		t.Errorf("tool executed %d times, want 2", len(tool.calls))
	}
	if len(provider.requests) != 3 {
		t.Fatalf("provider called %d times, want 3", len(provider.requests))
	}

	// Third request carries the full transcript: user, assistant(tool_use),
	// user(tool_result), assistant(tool_use), user(tool_result).
	turns := provider.requests[2].Turns
	wantRoles := []string{RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleUser}
	if len(turns) != len(wantRoles) {
		t.Fatalf("transcript length = %d, want %d", len(turns), len(wantRoles))
	}
	for i, want := range wantRoles {
		if turns[i].Role != want {
			t.Errorf("turn %d role = %q, want %q", i, turns[i].Role, want)
		}
	}
	if turns[2].Blocks[0].Type != BlockToolResult || turns[2].Blocks[0].ID != "t1" {
		t.Errorf("turn 2 block = %+v, want tool_result for t1", turns[2].Blocks[0])
	}
}

func TestRespondForcedFinalAfterRoundCap(t *testing.T) {
	// The model keeps asking for tools. After the cap, one more completion
	// is issued and its text returned even though it still requests a tool.
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "search_course_content", `{}`),
			toolCompletion("", "t2", "search_course_content", `{}`),
			toolCompletion("Here is what I found so far.", "t3", "search_course_content", `{}`),
		},
	}
	tool := &searchTool{content: "chunk"}
	registry := NewToolRegistry()
	registry.Add(tool)

	orch := NewOrchestrator(provider)
	got := orch.Respond(context.Background(), Query{
		Text:     "q",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	if got != "Here is what I found so far." {
		t.Errorf("Respond = %q", got)
	}
	if len(provider.requests) != MaxToolRounds+1 {
		t.Errorf("provider called %d times, want %d", len(provider.requests), MaxToolRounds+1)
	}
	if len(tool.calls) != MaxToolRounds {
		t.Errorf("tool executed %d times, want %d", len(tool.calls), MaxToolRounds)
	}
}

func TestRespondDegradedAnswerKeepsPreToolText(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("Let me search for that.", "t1", "fail", `{}`),
		},
	}
	registry := NewToolRegistry()
	registry.Add(errTool{})

	orch := NewOrchestrator(provider)
	got := orch.Respond(context.Background(), Query{
		Text:     "q",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	if !strings.HasPrefix(got, "Let me search for that.\n\n[Note: Unable to complete search due to error: ") {
		t.Errorf("Respond = %q, want pre-tool text with bracketed note", got)
	}
	if !strings.Contains(got, "tool broken") {
		t.Errorf("Respond = %q, want underlying error included", got)
	}
	if len(provider.requests) != 1 {
		t.Errorf("provider called %d times after failed round, want 1", len(provider.requests))
	}
}

func TestRespondDegradedAnswerWithoutPreToolText(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "degrade", `{}`),
		},
	}
	registry := NewToolRegistry()
	registry.Add(typedErrTool{})

	orch := NewOrchestrator(provider)
	got := orch.Respond(context.Background(), Query{
		Text:     "q",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	want := "I encountered an error while searching: tool execution failed: Error: index unavailable"
	if got != want {
		t.Errorf("Respond = %q, want %q", got, want)
	}
}

func TestRespondTransportError(t *testing.T) {
	provider := &mockProvider{name: "test", err: &ErrLLM{Provider: "test", Message: "rate limited"}}
	orch := NewOrchestrator(provider)

	got := orch.Respond(context.Background(), Query{Text: "q"})

	if !strings.HasPrefix(got, "I encountered an error while processing your request: ") {
		t.Errorf("Respond = %q, want transport apology", got)
	}
	if !strings.Contains(got, "rate limited") {
		t.Errorf("Respond = %q, want provider error included", got)
	}
	if len(provider.requests) != 1 {
		t.Errorf("provider called %d times, want 1 (no retry)", len(provider.requests))
	}
}

func TestRespondToolUseWithoutRegistry(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("I would need to search.", "t1", "search_course_content", `{}`),
		},
	}
	orch := NewOrchestrator(provider)
	tool := &searchTool{}

	got := orch.Respond(context.Background(), Query{
		Text:  "q",
		Tools: tool.Definitions(),
	})

	if got != "I would need to search." {
		t.Errorf("Respond = %q, want completion text passed through", got)
	}
	if len(provider.requests) != 1 {
		t.Errorf("provider called %d times, want 1", len(provider.requests))
	}
}

func TestRespondEmptyCompletionFallback(t *testing.T) {
	provider := &mockProvider{
		name:        "test",
		completions: []Completion{{StopReason: StopEndTurn}},
	}
	orch := NewOrchestrator(provider)

	got := orch.Respond(context.Background(), Query{Text: "q"})

	if got != "I was unable to generate a text response." {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondHistoryInSystemPrompt(t *testing.T) {
	provider := &mockProvider{name: "test", completions: []Completion{textCompletion("ok")}}
	orch := NewOrchestrator(provider)

	orch.Respond(context.Background(), Query{
		Text:    "q",
		History: "User: hi\nAssistant: hello",
	})

	system := provider.requests[0].System
	if !strings.Contains(system, "Previous conversation:\nUser: hi\nAssistant: hello") {
		t.Errorf("system prompt missing history block: %q", system)
	}
	if !strings.HasPrefix(system, SystemPrompt) {
		t.Error("system prompt does not start with the base instructions")
	}
}

func TestRespondToolsOfferedOnEveryCall(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "search_course_content", `{}`),
			textCompletion("done"),
		},
	}
	tool := &searchTool{content: "chunk"}
	registry := NewToolRegistry()
	registry.Add(tool)

	orch := NewOrchestrator(provider)
	orch.Respond(context.Background(), Query{
		Text:     "q",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	for i, req := range provider.requests {
		if len(req.Tools) == 0 || !req.AutoToolChoice {
			t.Errorf("request %d missing tool schemas or auto tool choice", i)
		}
	}
}

func TestRespondSourcesResetPerRun(t *testing.T) {
	tool := &searchTool{
		content: "chunk",
		sources: []Source{{Text: "MCP - Lesson 1", URL: "https://example.com/l1"}},
	}
	registry := NewToolRegistry()
	registry.Add(tool)

	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "search_course_content", `{}`),
			textCompletion("first"),
			textCompletion("second, no tools"),
		},
	}
	orch := NewOrchestrator(provider)

	orch.Respond(context.Background(), Query{Text: "q1", Tools: registry.AllDefinitions(), Registry: registry})
	if got := registry.LastSources(); len(got) != 1 {
		t.Fatalf("sources after first run = %d, want 1", len(got))
	}

	orch.Respond(context.Background(), Query{Text: "q2", Tools: registry.AllDefinitions(), Registry: registry})
	if got := registry.LastSources(); len(got) != 0 {
		t.Errorf("sources after tool-free run = %d, want 0 (reset at start)", len(got))
	}
}

func TestRespondIdempotentAcrossIdenticalRuns(t *testing.T) {
	for run := 0; run < 2; run++ {
		provider := &mockProvider{
			name: "test",
			completions: []Completion{
				toolCompletion("", "t1", "search_course_content", `{"query":"x"}`),
				textCompletion("stable answer"),
			},
		}
		tool := &searchTool{content: "chunk"}
		registry := NewToolRegistry()
		registry.Add(tool)

		orch := NewOrchestrator(provider)
		got := orch.Respond(context.Background(), Query{
			Text:     "q",
			Tools:    registry.AllDefinitions(),
			Registry: registry,
		})
		if got != "stable answer" {
			t.Errorf("run %d: Respond = %q", run, got)
		}
	}
}

func TestWithMaxToolRounds(t *testing.T) {
	provider := &mockProvider{
		name: "test",
		completions: []Completion{
			toolCompletion("", "t1", "search_course_content", `{}`),
			textCompletion("forced"),
		},
	}
	tool := &searchTool{content: "chunk"}
	registry := NewToolRegistry()
	registry.Add(tool)

	orch := NewOrchestrator(provider, WithMaxToolRounds(1))
	got := orch.Respond(context.Background(), Query{
		Text:     "q",
		Tools:    registry.AllDefinitions(),
		Registry: registry,
	})

	if got != "forced" {
		t.Errorf("Respond = %q", got)
	}
	if len(provider.requests) != 2 {
		t.Errorf("provider called %d times, want 2 (one round plus forced final)", len(provider.requests))
	}
}
