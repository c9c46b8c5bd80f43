// Package web exposes the assistant over HTTP.
//
// The server has a small JSON API plus an optional static frontend:
//
//	POST   /api/query        ask a question within a session
//	GET    /api/courses      course catalog analytics
//	DELETE /api/session/:id  drop a session's history
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wicaksana/lectern"
	"github.com/wicaksana/lectern/internal/session"
)

// Assistant is the subset of the assistant surface the server needs.
type Assistant interface {
	Ask(ctx context.Context, question, history string) lectern.Answer
	Analytics(ctx context.Context) (lectern.Analytics, error)
}

type Server struct {
	assistant Assistant
	sessions  session.Manager
	engine    *gin.Engine
	logger    *slog.Logger
	staticDir string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStaticDir serves frontend files from dir at the root path.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// NewServer wires the HTTP routes. The returned server implements
// http.Handler and can be mounted directly on an http.Server.
func NewServer(assistant Assistant, sessions session.Manager, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		sessions:  sessions,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	{
		api.POST("/query", s.handleQuery)
		api.GET("/courses", s.handleCourses)
		api.DELETE("/session/:id", s.handleClearSession)
	}

	if s.staticDir != "" {
		engine.Use(noCache())
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.staticDir))))
	}

	s.engine = engine
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

type queryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type sourceResponse struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

type queryResponse struct {
	Answer    string           `json:"answer"`
	Sources   []sourceResponse `json:"sources"`
	SessionID string           `json:"session_id"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}

	history, err := s.sessions.History(sessionID)
	if err != nil {
		s.logger.Warn("session history unavailable", "session", sessionID, "error", err)
	}

	answer := s.assistant.Ask(c.Request.Context(), req.Query, history)

	if err := s.sessions.AddExchange(sessionID, req.Query, answer.Text); err != nil {
		s.logger.Warn("session save failed", "session", sessionID, "error", err)
	}

	sources := make([]sourceResponse, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, sourceResponse{Text: src.Text, URL: src.URL})
	}

	c.JSON(http.StatusOK, queryResponse{
		Answer:    answer.Text,
		Sources:   sources,
		SessionID: sessionID,
	})
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (s *Server) handleCourses(c *gin.Context) {
	stats, err := s.assistant.Analytics(c.Request.Context())
	if err != nil {
		s.logger.Error("course analytics failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	titles := stats.CourseTitles
	if titles == nil {
		titles = []string{}
	}
	c.JSON(http.StatusOK, coursesResponse{
		TotalCourses: stats.TotalCourses,
		CourseTitles: titles,
	})
}

func (s *Server) handleClearSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.sessions.Clear(id); err != nil {
		s.logger.Error("session clear failed", "session", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "session_id": id})
}

// noCache disables browser caching so frontend edits show up without a
// hard refresh during development.
func noCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
