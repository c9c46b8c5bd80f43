package lectern

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxToolRounds caps the number of tool-execution rounds in one run. The
// cap bounds cost and latency; after it is hit one final completion is
// forced so the caller always receives synthesized prose instead of a raw
// tool-request artifact.
const MaxToolRounds = 2

// SystemPrompt is the fixed instruction block sent with every completion.
// It encodes when to use retrieval versus general knowledge, that tools may
// be invoked across multiple rounds, and the output-formatting contract.
const SystemPrompt = `You are an AI assistant specialized in course materials and educational content with access to comprehensive search tools for course information.

Available Tools:
1. **Content Search Tool** - For searching within course materials and lessons
2. **Course Outline Tool** - For retrieving complete course structure and metadata

Tool Usage Guidelines:
- Use the **content search tool** for questions about specific course content or detailed educational materials
- Use the **course outline tool** for questions about course structure, lesson lists, or course metadata
- **You can use tools multiple times** to gather complete information before answering
- **Search iteratively**: If initial results are insufficient or you need to compare information, use tools again with refined parameters
- Example: First get a course outline to identify relevant lessons, then search specific lesson content for details
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without using tools
- **Course content questions**: Use content search tool (multiple times if needed), then answer
- **Course outline questions**: Use course outline tool to retrieve full course details (title, link, lesson list)
- **Multi-part questions**: Use tools sequentially to gather all needed information before answering
- **No meta-commentary**:
 - Provide direct answers only — no reasoning process, tool explanations, or question-type analysis
 - Do not mention "based on the search results" or "using the tool"

When returning course outlines, include:
- Course title
- Course link
- Complete lesson list with numbers and titles

All responses must be:
1. **Brief, Concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// Query carries one question through the orchestration loop.
type Query struct {
	// Text is the user's question. Opaque to the orchestrator beyond
	// inclusion in the seed turn.
	Text string
	// History is an optional rendered previous-conversation block,
	// appended to the system instructions under a label.
	History string
	// Tools is the optional schema list offered to the model.
	Tools []ToolDefinition
	// Registry executes tool calls. Optional: when the model requests
	// tools but no registry is supplied, the completion's text (if any)
	// is returned as the answer.
	Registry *ToolRegistry
}

// Orchestrator drives a bounded sequence of model-completion and
// tool-execution rounds for a single query. It owns the transcript and
// round counter for the duration of one run and never returns an error:
// every failure mode degrades to an answer string.
type Orchestrator struct {
	provider  ModelProvider
	maxRounds int
	logger    *slog.Logger
	tracer    Tracer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxToolRounds overrides the default round cap. Values below 1 are
// ignored.
func WithMaxToolRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxRounds = n
		}
	}
}

// WithLogger sets a structured logger. Default discards.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTracer enables span creation around runs and rounds.
func WithTracer(t Tracer) OrchestratorOption {
	return func(o *Orchestrator) { o.tracer = t }
}

// NewOrchestrator creates an Orchestrator over the given provider.
func NewOrchestrator(provider ModelProvider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		maxRounds: MaxToolRounds,
		logger:    nopLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond runs the tool-calling loop for one query and returns the answer
// text. Termination conditions are evaluated in fixed priority order:
// direct answer, no executor, execution failure, round cap. Transport
// failures are terminal and surface as an apologetic string embedding the
// error; they are never retried.
func (o *Orchestrator) Respond(ctx context.Context, q Query) string {
	if o.tracer != nil {
		var span Span
		ctx, span = o.tracer.Start(ctx, "orchestrator.respond",
			BoolAttr("has_tools", len(q.Tools) > 0),
			BoolAttr("has_history", q.History != ""))
		defer span.End()
	}

	system := SystemPrompt
	if q.History != "" {
		system += "\n\nPrevious conversation:\n" + q.History
	}
	if q.Registry != nil {
		q.Registry.ResetSources()
	}

	transcript := []Turn{UserTurn(q.Text)}

	var last *Completion
	rounds := 0
	for rounds < o.maxRounds {
		c, err := o.complete(ctx, system, transcript, q)
		if err != nil {
			o.logger.Error("completion failed", "provider", o.provider.Name(), "error", err)
			return "I encountered an error while processing your request: " + err.Error()
		}
		last = &c

		// The model answered directly.
		if c.StopReason != StopToolUse {
			break
		}

		// Tool use requested but no executor available: not an error,
		// return whatever text the completion carried.
		if q.Registry == nil {
			return extractText(last)
		}

		results, execErr := o.executeTools(ctx, c, q.Registry)
		if execErr != nil {
			o.logger.Warn("tool round aborted", "round", rounds, "error", execErr)
			return degradedAnswer(c, execErr)
		}

		transcript = append(transcript, AssistantTurn(c.Blocks), ToolResultTurn(results))
		rounds++
		o.logger.Debug("tool round complete", "round", rounds, "results", len(results))
	}

	// Round cap reached with the model still asking for tools: force one
	// final completion so the caller gets synthesized prose.
	if last != nil && last.StopReason == StopToolUse && rounds >= o.maxRounds {
		o.logger.Warn("max tool rounds reached, forcing final answer", "rounds", rounds)
		c, err := o.complete(ctx, system, transcript, q)
		if err != nil {
			o.logger.Error("final completion failed", "provider", o.provider.Name(), "error", err)
			return "I encountered an error while generating the final response: " + err.Error()
		}
		last = &c
	}

	return extractText(last)
}

// complete issues one completion request with the fixed parameters of this
// run: current transcript, system instructions, and the tool schemas with
// automatic tool choice when any were supplied.
func (o *Orchestrator) complete(ctx context.Context, system string, transcript []Turn, q Query) (Completion, error) {
	req := CompletionRequest{System: system, Turns: transcript}
	if len(q.Tools) > 0 {
		req.Tools = q.Tools
		req.AutoToolChoice = true
	}
	return o.provider.Complete(ctx, req)
}

// executeTools dispatches every tool-use block of the completion through
// the registry, in encounter order, and returns the correlated result
// blocks. All-or-nothing per round: the first Go error or error-typed
// result aborts the step and nothing is applied to the transcript.
func (o *Orchestrator) executeTools(ctx context.Context, c Completion, registry *ToolRegistry) ([]Block, error) {
	var results []Block
	for _, use := range c.ToolUses() {
		var span Span
		toolCtx := ctx
		if o.tracer != nil {
			toolCtx, span = o.tracer.Start(ctx, "orchestrator.tool",
				StringAttr("tool.name", use.Name))
		}
		result, err := registry.Execute(toolCtx, use.Name, use.Args)
		if span != nil {
			if err != nil {
				span.Error(err)
			}
			span.End()
		}
		if err != nil {
			return nil, fmt.Errorf("tool execution exception: %w", err)
		}
		if result.Failed() {
			return nil, fmt.Errorf("tool execution failed: %s", result.ErrorText())
		}
		results = append(results, ToolResultBlock(use.ID, result.Content, false))
	}
	return results, nil
}

// degradedAnswer builds the user-facing answer after a failed tool round.
// Models sometimes emit explanatory text before requesting a tool; when
// present it is surfaced with the error appended as a bracketed note, so
// the user never sees raw transcript internals.
func degradedAnswer(c Completion, execErr error) string {
	if text, ok := c.FirstText(); ok {
		return text + "\n\n[Note: Unable to complete search due to error: " + execErr.Error() + "]"
	}
	return "I encountered an error while searching: " + execErr.Error()
}

// extractText returns the first plain-text block of the completion, with
// fixed fallbacks so every orchestrator exit path yields a plain string.
func extractText(c *Completion) string {
	if c == nil {
		return "I was unable to generate a response."
	}
	if text, ok := c.FirstText(); ok {
		return text
	}
	return "I was unable to generate a text response."
}

// nopLogger discards all output. Library types fall back to it so logging
// is strictly opt-in.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
