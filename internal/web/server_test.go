package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wicaksana/lectern"
	"github.com/wicaksana/lectern/internal/session"
)

type stubAssistant struct {
	answer    lectern.Answer
	analytics lectern.Analytics
	statsErr  error
	questions []string
	histories []string
}

func (s *stubAssistant) Ask(ctx context.Context, question, history string) lectern.Answer {
	s.questions = append(s.questions, question)
	s.histories = append(s.histories, history)
	return s.answer
}

func (s *stubAssistant) Analytics(ctx context.Context) (lectern.Analytics, error) {
	return s.analytics, s.statsErr
}

func newTestServer(assistant *stubAssistant) (*Server, session.Manager) {
	sessions := session.NewMemoryManager(2)
	return NewServer(assistant, sessions), sessions
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestQueryCreatesSession(t *testing.T) {
	assistant := &stubAssistant{answer: lectern.Answer{
		Text:    "MCP is a protocol.",
		Sources: []lectern.Source{{Text: "MCP Course - Lesson 1", URL: "https://example.com/1"}},
	}}
	srv, _ := newTestServer(assistant)

	w := postQuery(t, srv, `{"query":"What is MCP?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "MCP is a protocol." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.SessionID == "" {
		t.Error("expected a generated session ID")
	}
	if len(resp.Sources) != 1 || resp.Sources[0].URL != "https://example.com/1" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestQueryPassesHistoryOnSecondTurn(t *testing.T) {
	assistant := &stubAssistant{answer: lectern.Answer{Text: "answer"}}
	srv, _ := newTestServer(assistant)

	w := postQuery(t, srv, `{"query":"first question"}`)
	var resp queryResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	postQuery(t, srv, `{"query":"second question","session_id":"`+resp.SessionID+`"}`)

	if len(assistant.histories) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(assistant.histories))
	}
	if assistant.histories[0] != "" {
		t.Errorf("first call should have no history, got %q", assistant.histories[0])
	}
	want := "User: first question\nAssistant: answer"
	if assistant.histories[1] != want {
		t.Errorf("second history = %q, want %q", assistant.histories[1], want)
	}
}

func TestQueryRejectsMissingQuery(t *testing.T) {
	srv, _ := newTestServer(&stubAssistant{})
	w := postQuery(t, srv, `{"session_id":"abc"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCourses(t *testing.T) {
	assistant := &stubAssistant{analytics: lectern.Analytics{
		TotalCourses: 2,
		CourseTitles: []string{"MCP Course", "RAG Course"},
	}}
	srv, _ := newTestServer(assistant)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp coursesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalCourses != 2 || len(resp.CourseTitles) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCoursesError(t *testing.T) {
	assistant := &stubAssistant{statsErr: errors.New("store down")}
	srv, _ := newTestServer(assistant)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestClearSession(t *testing.T) {
	assistant := &stubAssistant{answer: lectern.Answer{Text: "answer"}}
	srv, sessions := newTestServer(assistant)

	w := postQuery(t, srv, `{"query":"q"}`)
	var resp queryResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+resp.SessionID, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	history, _ := sessions.History(resp.SessionID)
	if history != "" {
		t.Errorf("expected cleared history, got %q", history)
	}
}
