package lectern

import "encoding/json"

// --- Transcript types ---

// Turn roles. A transcript strictly alternates user/assistant, starting
// with user; tool results travel inside a user turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block kinds inside a turn or completion.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Block is one content block of a turn or completion: plain text, a tool
// invocation request produced by the model, or a tool result fed back in.
type Block struct {
	Type string `json:"type"`

	// Text blocks.
	Text string `json:"text,omitempty"`

	// Tool-use and tool-result blocks. ID correlates a result to its request.
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`

	// Tool-result blocks.
	Content string `json:"content,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// Turn is one entry of the conversation transcript.
type Turn struct {
	Role   string  `json:"role"`
	Blocks []Block `json:"blocks"`
}

// --- Block and Turn constructors ---

func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

func ToolUseBlock(id, name string, args json.RawMessage) Block {
	return Block{Type: BlockToolUse, ID: id, Name: name, Args: args}
}

func ToolResultBlock(id, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ID: id, Content: content, IsError: isError}
}

// UserTurn builds a user turn holding a single text block.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Blocks: []Block{TextBlock(text)}}
}

// AssistantTurn builds an assistant turn holding the raw completion blocks.
func AssistantTurn(blocks []Block) Turn {
	return Turn{Role: RoleAssistant, Blocks: blocks}
}

// ToolResultTurn builds the user turn that carries tool results back to the
// model. Results stay block-structured, never flattened to plain text, so
// the model can correlate them to its requests by ID.
func ToolResultTurn(results []Block) Turn {
	return Turn{Role: RoleUser, Blocks: results}
}

// --- Completion types ---

// StopReason reports why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// CompletionRequest is one request to a ModelProvider.
type CompletionRequest struct {
	System string
	Turns  []Turn
	Tools  []ToolDefinition
	// AutoToolChoice lets the model decide whether to invoke a tool.
	// Set whenever Tools is non-empty.
	AutoToolChoice bool
}

// Completion is a model response: a stop reason plus ordered content blocks
// (text and tool-use only; providers never return tool-result blocks).
type Completion struct {
	StopReason StopReason
	Blocks     []Block
	Usage      Usage
}

// FirstText returns the text of the first plain-text block, if any.
func (c Completion) FirstText() (string, bool) {
	for _, b := range c.Blocks {
		if b.Type == BlockText {
			return b.Text, true
		}
	}
	return "", false
}

// ToolUses returns the tool-use blocks in encounter order.
func (c Completion) ToolUses() []Block {
	var out []Block
	for _, b := range c.Blocks {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ToolDefinition describes one tool to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}
