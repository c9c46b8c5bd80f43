package session

import (
	"strings"
	"testing"
)

func TestMemoryManagerCreateUnique(t *testing.T) {
	m := NewMemoryManager(2)
	a := m.Create()
	b := m.Create()
	if a == "" || b == "" {
		t.Fatal("expected non-empty session IDs")
	}
	if a == b {
		t.Fatalf("expected unique IDs, got %s twice", a)
	}
}

func TestMemoryManagerHistoryFormat(t *testing.T) {
	m := NewMemoryManager(2)
	id := m.Create()
	if err := m.AddExchange(id, "What is MCP?", "MCP is a protocol."); err != nil {
		t.Fatal(err)
	}

	got, err := m.History(id)
	if err != nil {
		t.Fatal(err)
	}
	want := "User: What is MCP?\nAssistant: MCP is a protocol."
	if got != want {
		t.Errorf("history = %q, want %q", got, want)
	}
}

func TestMemoryManagerBoundsHistory(t *testing.T) {
	m := NewMemoryManager(2)
	id := m.Create()
	m.AddExchange(id, "q1", "a1")
	m.AddExchange(id, "q2", "a2")
	m.AddExchange(id, "q3", "a3")

	got, _ := m.History(id)
	if strings.Contains(got, "q1") {
		t.Errorf("oldest exchange should be evicted, got %q", got)
	}
	if !strings.Contains(got, "q2") || !strings.Contains(got, "q3") {
		t.Errorf("recent exchanges missing, got %q", got)
	}
}

func TestMemoryManagerClear(t *testing.T) {
	m := NewMemoryManager(2)
	id := m.Create()
	m.AddExchange(id, "q", "a")
	if err := m.Clear(id); err != nil {
		t.Fatal(err)
	}
	got, _ := m.History(id)
	if got != "" {
		t.Errorf("expected empty history after clear, got %q", got)
	}
}

func TestMemoryManagerUnknownSession(t *testing.T) {
	m := NewMemoryManager(2)
	got, err := m.History("missing")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("expected empty history, got %q", got)
	}
}

func TestRender(t *testing.T) {
	got := Render([]Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})
	want := "User: hello\nAssistant: hi"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
	if Render(nil) != "" {
		t.Error("expected empty render for nil messages")
	}
}
