// Package sqlite implements lectern.CourseStore using pure-Go SQLite
// with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/wicaksana/lectern"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements lectern.CourseStore backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search is done
// in-process using brute-force cosine similarity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ lectern.CourseStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			title TEXT PRIMARY KEY,
			link TEXT,
			instructor TEXT,
			lessons TEXT NOT NULL,
			title_embedding TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INTEGER NOT NULL,
			content TEXT NOT NULL,
			position INTEGER NOT NULL,
			embedding TEXT
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_course ON chunks(course_title)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_lesson ON chunks(course_title, lesson_number)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// AddCourse inserts a course and all its chunks in a single transaction.
// An existing course with the same title is replaced along with its chunks.
func (s *Store) AddCourse(ctx context.Context, course lectern.Course, chunks []lectern.CourseChunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: add course", "title", course.Title, "lessons", len(course.Lessons), "chunks", len(chunks))

	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var titleEmb *string
	if len(course.TitleEmbedding) > 0 {
		v := serializeEmbedding(course.TitleEmbedding)
		titleEmb = &v
	}
	createdAt := course.CreatedAt
	if createdAt == 0 {
		createdAt = lectern.NowUnix()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO courses (title, link, instructor, lessons, title_embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		course.Title, course.Link, course.Instructor, string(lessons), titleEmb, createdAt,
	)
	if err != nil {
		s.logger.Error("sqlite: insert course failed", "title", course.Title, "error", err)
		return fmt.Errorf("insert course: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE course_title = ?`, course.Title); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		id := chunk.ID
		if id == "" {
			id = lectern.NewID()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, course_title, lesson_number, content, position, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, chunk.CourseTitle, chunk.LessonNumber, chunk.Content, chunk.Position, embJSON,
		)
		if err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", id, "course", course.Title, "error", err)
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: add course commit failed", "title", course.Title, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: add course ok", "title", course.Title, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// GetCourse returns the course with the exact title.
func (s *Store) GetCourse(ctx context.Context, title string) (lectern.Course, error) {
	var c lectern.Course
	var lessons string
	var embJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT title, link, instructor, lessons, title_embedding, created_at FROM courses WHERE title = ?`,
		title,
	).Scan(&c.Title, &c.Link, &c.Instructor, &lessons, &embJSON, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return lectern.Course{}, lectern.ErrCourseNotFound
	}
	if err != nil {
		return lectern.Course{}, fmt.Errorf("get course: %w", err)
	}
	if err := json.Unmarshal([]byte(lessons), &c.Lessons); err != nil {
		return lectern.Course{}, fmt.Errorf("unmarshal lessons: %w", err)
	}
	if embJSON.Valid {
		c.TitleEmbedding, _ = deserializeEmbedding(embJSON.String)
	}
	return c, nil
}

// ListCourseTitles returns all course titles in insertion order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM courses ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CourseTitleEmbeddings returns title -> embedding for every course that
// has one stored.
func (s *Store) CourseTitleEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, title_embedding FROM courses WHERE title_embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("course title embeddings: %w", err)
	}
	defer rows.Close()

	out := map[string][]float32{}
	for rows.Next() {
		var title, embJSON string
		if err := rows.Scan(&title, &embJSON); err != nil {
			return nil, fmt.Errorf("scan title embedding: %w", err)
		}
		emb, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		out[title] = emb
	}
	return out, rows.Err()
}

// SearchChunks performs brute-force cosine similarity search over chunks.
// The filter is pushed into SQL so only candidate rows are scanned.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search chunks", "top_k", topK, "embedding_dim", len(embedding), "course", filter.CourseTitle)

	query := `SELECT id, course_title, lesson_number, content, position, embedding
		 FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if filter.CourseTitle != "" {
		query += ` AND course_title = ?`
		args = append(args, filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		query += ` AND lesson_number = ?`
		args = append(args, *filter.LessonNumber)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("sqlite: search chunks failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredChunk
	scanned := 0
	for rows.Next() {
		var c lectern.CourseChunk
		var embJSON string
		if err := rows.Scan(&c.ID, &c.CourseTitle, &c.LessonNumber, &c.Content, &c.Position, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		scanned++
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, lectern.ScoredChunk{
			CourseChunk: c,
			Score:       lectern.CosineSimilarity(embedding, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search chunks ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
