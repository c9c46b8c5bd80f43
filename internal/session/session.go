// Package session tracks per-conversation history for the assistant.
//
// A session holds the most recent user/assistant exchanges and renders
// them as a plain-text block for inclusion in the system prompt. Two
// backends are provided: an in-memory manager for single-process
// deployments and a redis-backed manager for shared state.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wicaksana/lectern"
)

// Message is one entry in a conversation, either a user question or an
// assistant answer.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Manager stores conversation history keyed by session ID.
type Manager interface {
	// Create returns a fresh session ID.
	Create() string
	// AddExchange records a question and its answer in one call.
	AddExchange(sessionID, question, answer string) error
	// History renders the session as "User: ...\nAssistant: ..." lines,
	// or "" when the session is empty or unknown.
	History(sessionID string) (string, error)
	// Clear removes all history for the session.
	Clear(sessionID string) error
}

// MemoryManager keeps sessions in process memory. History is bounded:
// only the most recent maxMessages exchanges are retained.
type MemoryManager struct {
	mu          sync.Mutex
	sessions    map[string][]Message
	maxMessages int
}

// NewMemoryManager returns a manager keeping at most maxMessages
// exchanges (a question/answer pair counts as one) per session.
func NewMemoryManager(maxMessages int) *MemoryManager {
	if maxMessages < 1 {
		maxMessages = 2
	}
	return &MemoryManager{
		sessions:    make(map[string][]Message),
		maxMessages: maxMessages,
	}
}

func (m *MemoryManager) Create() string {
	id := lectern.NewID()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

func (m *MemoryManager) AddExchange(sessionID, question, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := append(m.sessions[sessionID],
		Message{Role: "user", Content: question},
		Message{Role: "assistant", Content: answer},
	)
	if max := m.maxMessages * 2; len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	m.sessions[sessionID] = msgs
	return nil
}

func (m *MemoryManager) History(sessionID string) (string, error) {
	m.mu.Lock()
	msgs := m.sessions[sessionID]
	m.mu.Unlock()
	return Render(msgs), nil
}

func (m *MemoryManager) Clear(sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// Render formats messages as alternating "User:"/"Assistant:" lines.
func Render(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
