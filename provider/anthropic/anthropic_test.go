package anthropic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wicaksana/lectern"
)

func TestToMessagesRolesAndBlocks(t *testing.T) {
	turns := []lectern.Turn{
		lectern.UserTurn("question"),
		lectern.AssistantTurn([]lectern.Block{
			lectern.TextBlock("let me check"),
			lectern.ToolUseBlock("t1", "search_course_content", json.RawMessage(`{"query":"x"}`)),
		}),
		lectern.ToolResultTurn([]lectern.Block{
			lectern.ToolResultBlock("t1", "chunk text", false),
		}),
	}

	msgs := toMessages(turns)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}

	raw, err := json.Marshal(msgs)
	if err != nil {
		t.Fatal(err)
	}
	var parsed []struct {
		Role    string `json:"role"`
		Content []struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			ID        string `json:"id"`
			Name      string `json:"name"`
			ToolUseID string `json:"tool_use_id"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed[0].Role != "user" || parsed[1].Role != "assistant" || parsed[2].Role != "user" {
		t.Errorf("roles = %s/%s/%s", parsed[0].Role, parsed[1].Role, parsed[2].Role)
	}
	if parsed[1].Content[0].Type != "text" || parsed[1].Content[0].Text != "let me check" {
		t.Errorf("assistant block 0 = %+v", parsed[1].Content[0])
	}
	if parsed[1].Content[1].Type != "tool_use" || parsed[1].Content[1].Name != "search_course_content" {
		t.Errorf("assistant block 1 = %+v", parsed[1].Content[1])
	}
	if parsed[2].Content[0].Type != "tool_result" || parsed[2].Content[0].ToolUseID != "t1" {
		t.Errorf("tool result block = %+v", parsed[2].Content[0])
	}
}

func TestToToolsSchemaConversion(t *testing.T) {
	defs := []lectern.ToolDefinition{{
		Name:        "search_course_content",
		Description: "Search course materials",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
	}}

	raw, err := json.Marshal(toTools(defs))
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, want := range []string{
		`"name":"search_course_content"`,
		`"description":"Search course materials"`,
		`"query"`,
		`"required":["query"]`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("serialized tools missing %s:\n%s", want, s)
		}
	}
}

func TestToInputSchemaMalformed(t *testing.T) {
	schema := toInputSchema(json.RawMessage(`not json`))
	if schema.Properties != nil || len(schema.Required) != 0 {
		t.Errorf("malformed schema should degrade to empty, got %+v", schema)
	}
}

func TestStopReasonMapping(t *testing.T) {
	if got := stopReason("tool_use"); got != lectern.StopToolUse {
		t.Errorf("tool_use -> %q", got)
	}
	if got := stopReason("max_tokens"); got != lectern.StopMaxTokens {
		t.Errorf("max_tokens -> %q", got)
	}
	if got := stopReason("end_turn"); got != lectern.StopEndTurn {
		t.Errorf("end_turn -> %q", got)
	}
}
