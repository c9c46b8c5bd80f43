// Package anthropic implements the Anthropic completion provider.
package anthropic

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/wicaksana/lectern"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(sdk.ModelClaudeSonnet4_0)

// Anthropic implements lectern.ModelProvider via the Messages API.
type Anthropic struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

// Option configures an Anthropic provider.
type Option func(*Anthropic)

// WithMaxTokens sets the response token cap. Default is 800.
func WithMaxTokens(n int64) Option {
	return func(a *Anthropic) { a.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Default is 0.
func WithTemperature(t float64) Option {
	return func(a *Anthropic) { a.temperature = t }
}

// New creates an Anthropic provider. An empty apiKey falls back to the
// SDK's ANTHROPIC_API_KEY environment lookup; an empty model uses
// DefaultModel.
func New(apiKey, model string, opts ...Option) *Anthropic {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultModel
	}
	a := &Anthropic{
		client:    sdk.NewClient(clientOpts...),
		model:     model,
		maxTokens: 800,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns "anthropic".
func (a *Anthropic) Name() string { return "anthropic" }

// Complete sends one Messages request and maps the response back to the
// provider-neutral completion shape.
func (a *Anthropic) Complete(ctx context.Context, req lectern.CompletionRequest) (lectern.Completion, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   a.maxTokens,
		Temperature: sdk.Float(a.temperature),
		Messages:    toMessages(req.Turns),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
		if req.AutoToolChoice {
			params.ToolChoice = sdk.ToolChoiceUnionParam{OfAuto: &sdk.ToolChoiceAutoParam{}}
		}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return lectern.Completion{}, &lectern.ErrLLM{Provider: "anthropic", Message: err.Error()}
	}
	return fromMessage(msg), nil
}

func toMessages(turns []lectern.Turn) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(turns))
	for _, turn := range turns {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(turn.Blocks))
		for _, b := range turn.Blocks {
			switch b.Type {
			case lectern.BlockText:
				blocks = append(blocks, sdk.NewTextBlock(b.Text))
			case lectern.BlockToolUse:
				blocks = append(blocks, sdk.NewToolUseBlock(b.ID, b.Args, b.Name))
			case lectern.BlockToolResult:
				blocks = append(blocks, sdk.NewToolResultBlock(b.ID, b.Content, b.IsError))
			}
		}
		if turn.Role == lectern.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return out
}

func toTools(defs []lectern.ToolDefinition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, sdk.ToolUnionParam{OfTool: &sdk.ToolParam{
			Name:        d.Name,
			Description: sdk.String(d.Description),
			InputSchema: toInputSchema(d.Parameters),
		}})
	}
	return out
}

// toInputSchema splits a JSON Schema document into the properties/required
// shape the Messages API expects.
func toInputSchema(schema json.RawMessage) sdk.ToolInputSchemaParam {
	var parsed struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	// A schema that fails to parse degrades to an unconstrained tool.
	_ = json.Unmarshal(schema, &parsed)
	out := sdk.ToolInputSchemaParam{Required: parsed.Required}
	if parsed.Properties != nil {
		out.Properties = parsed.Properties
	}
	return out
}

func fromMessage(msg *sdk.Message) lectern.Completion {
	c := lectern.Completion{
		StopReason: stopReason(msg.StopReason),
		Usage: lectern.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdk.TextBlock:
			c.Blocks = append(c.Blocks, lectern.TextBlock(v.Text))
		case sdk.ToolUseBlock:
			c.Blocks = append(c.Blocks, lectern.ToolUseBlock(v.ID, v.Name, json.RawMessage(v.JSON.Input.Raw())))
		}
	}
	return c
}

func stopReason(r sdk.StopReason) lectern.StopReason {
	switch r {
	case sdk.StopReasonToolUse:
		return lectern.StopToolUse
	case sdk.StopReasonMaxTokens:
		return lectern.StopMaxTokens
	default:
		return lectern.StopEndTurn
	}
}
