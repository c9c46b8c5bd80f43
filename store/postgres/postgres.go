// Package postgres implements lectern.CourseStore using PostgreSQL with
// pgvector for native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wicaksana/lectern"
)

// Store implements lectern.CourseStore backed by PostgreSQL with pgvector.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert
// time. Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

var _ lectern.CourseStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// Init creates the pgvector extension, tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS courses (
			title TEXT PRIMARY KEY,
			link TEXT NOT NULL DEFAULT '',
			instructor TEXT NOT NULL DEFAULT '',
			lessons JSONB NOT NULL,
			title_embedding %s,
			created_at BIGINT NOT NULL
		)`, vtype),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL REFERENCES courses(title) ON DELETE CASCADE,
			lesson_number INTEGER NOT NULL,
			content TEXT NOT NULL,
			position INTEGER NOT NULL,
			embedding %s
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS chunks_course_idx ON chunks(course_title, lesson_number)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// AddCourse inserts a course and all its chunks in a single transaction,
// replacing any prior content under the same title.
func (s *Store) AddCourse(ctx context.Context, course lectern.Course, chunks []lectern.CourseChunk) error {
	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("postgres: marshal lessons: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	createdAt := course.CreatedAt
	if createdAt == 0 {
		createdAt = lectern.NowUnix()
	}
	var titleEmb *string
	if len(course.TitleEmbedding) > 0 {
		v := serializeEmbedding(course.TitleEmbedding)
		titleEmb = &v
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO courses (title, link, instructor, lessons, title_embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5::vector, $6)
		 ON CONFLICT (title) DO UPDATE SET
			link = EXCLUDED.link,
			instructor = EXCLUDED.instructor,
			lessons = EXCLUDED.lessons,
			title_embedding = EXCLUDED.title_embedding`,
		course.Title, course.Link, course.Instructor, string(lessons), titleEmb, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert course: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE course_title = $1`, course.Title); err != nil {
		return fmt.Errorf("postgres: delete old chunks: %w", err)
	}

	for _, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = lectern.NewID()
		}
		var embStr *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embStr = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, course_title, lesson_number, content, position, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			id, chunk.CourseTitle, chunk.LessonNumber, chunk.Content, chunk.Position, embStr,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// GetCourse returns the course with the exact title.
func (s *Store) GetCourse(ctx context.Context, title string) (lectern.Course, error) {
	var c lectern.Course
	var lessons []byte
	var embStr *string
	err := s.pool.QueryRow(ctx,
		`SELECT title, link, instructor, lessons, title_embedding::text, created_at
		 FROM courses WHERE title = $1`, title,
	).Scan(&c.Title, &c.Link, &c.Instructor, &lessons, &embStr, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return lectern.Course{}, lectern.ErrCourseNotFound
	}
	if err != nil {
		return lectern.Course{}, fmt.Errorf("postgres: get course: %w", err)
	}
	if err := json.Unmarshal(lessons, &c.Lessons); err != nil {
		return lectern.Course{}, fmt.Errorf("postgres: unmarshal lessons: %w", err)
	}
	if embStr != nil {
		c.TitleEmbedding, _ = deserializeEmbedding(*embStr)
	}
	return c, nil
}

// ListCourseTitles returns all course titles in insertion order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM courses ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("postgres: scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CourseTitleEmbeddings returns title -> embedding for every course that
// has one stored.
func (s *Store) CourseTitleEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, title_embedding::text FROM courses WHERE title_embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("postgres: course title embeddings: %w", err)
	}
	defer rows.Close()

	out := map[string][]float32{}
	for rows.Next() {
		var title, embStr string
		if err := rows.Scan(&title, &embStr); err != nil {
			return nil, fmt.Errorf("postgres: scan title embedding: %w", err)
		}
		emb, err := deserializeEmbedding(embStr)
		if err != nil {
			continue
		}
		out[title] = emb
	}
	return out, rows.Err()
}

// SearchChunks returns the topK chunks nearest to the embedding by cosine
// distance, restricted by the filter. Filtering happens in SQL so the HNSW
// index sees only candidate rows.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, filter lectern.ChunkFilter) ([]lectern.ScoredChunk, error) {
	q := `SELECT id, course_title, lesson_number, content, position,
			1 - (embedding <=> $1::vector) AS score
		 FROM chunks WHERE embedding IS NOT NULL`
	args := []any{serializeEmbedding(embedding)}
	if filter.CourseTitle != "" {
		args = append(args, filter.CourseTitle)
		q += fmt.Sprintf(" AND course_title = $%d", len(args))
	}
	if filter.LessonNumber != nil {
		args = append(args, *filter.LessonNumber)
		q += fmt.Sprintf(" AND lesson_number = $%d", len(args))
	}
	args = append(args, topK)
	q += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []lectern.ScoredChunk
	for rows.Next() {
		var sc lectern.ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.CourseTitle, &sc.LessonNumber, &sc.Content, &sc.Position, &sc.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// serializeEmbedding converts []float32 to pgvector text form.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses pgvector text form back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
