package lectern

import (
	"context"
	"math"
	"strings"
)

// Lesson is one numbered lesson of a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course is the catalog entry for one course. Title is the unique key
// across the store. TitleEmbedding backs semantic course-name resolution
// and never leaves the process.
type Course struct {
	Title          string    `json:"title"`
	Link           string    `json:"link,omitempty"`
	Instructor     string    `json:"instructor,omitempty"`
	Lessons        []Lesson  `json:"lessons"`
	TitleEmbedding []float32 `json:"-"`
	CreatedAt      int64     `json:"created_at"`
}

// Lesson returns the lesson with the given number, or false when the
// course has no such lesson.
func (c Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// CourseLevel marks a chunk that belongs to the course as a whole rather
// than to a specific lesson.
const CourseLevel = -1

// CourseChunk is one embeddable unit of course content. LessonNumber is
// CourseLevel for course-wide material.
type CourseChunk struct {
	ID           string    `json:"id"`
	CourseTitle  string    `json:"course_title"`
	LessonNumber int       `json:"lesson_number"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"-"`
	Position     int       `json:"position"`
}

// ScoredChunk is a CourseChunk with a similarity score in [0, 1].
type ScoredChunk struct {
	CourseChunk
	Score float32 `json:"score"`
}

// ChunkFilter narrows a chunk search. Zero value matches everything.
// CourseTitle must be an exact stored title (resolve fuzzy names first);
// LessonNumber nil means any lesson.
type ChunkFilter struct {
	CourseTitle  string
	LessonNumber *int
}

// Matches reports whether the chunk passes the filter.
func (f ChunkFilter) Matches(c CourseChunk) bool {
	if f.CourseTitle != "" && c.CourseTitle != f.CourseTitle {
		return false
	}
	if f.LessonNumber != nil && c.LessonNumber != *f.LessonNumber {
		return false
	}
	return true
}

// CourseStore abstracts course and chunk persistence with vector search.
type CourseStore interface {
	// AddCourse inserts a course and its chunks in one transaction.
	// Adding a title that already exists replaces the prior content.
	AddCourse(ctx context.Context, course Course, chunks []CourseChunk) error
	// GetCourse returns the course with the exact title, or
	// ErrCourseNotFound.
	GetCourse(ctx context.Context, title string) (Course, error)
	// ListCourseTitles returns every stored title in insertion order.
	ListCourseTitles(ctx context.Context) ([]string, error)
	// CourseTitleEmbeddings returns title -> embedding for every course,
	// for in-process semantic name resolution.
	CourseTitleEmbeddings(ctx context.Context) (map[string][]float32, error)
	// SearchChunks returns the topK chunks most similar to the
	// embedding, restricted by the filter, sorted by score descending.
	SearchChunks(ctx context.Context, embedding []float32, topK int, filter ChunkFilter) ([]ScoredChunk, error)

	Init(ctx context.Context) error
	Close() error
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// ResolveCourseName maps a possibly partial or fuzzy course name to an
// exact stored title. Exact and case-insensitive substring matches win
// over embedding similarity so that cheap lookups skip the embedding
// call. Returns ErrCourseNotFound when nothing scores above the floor.
func ResolveCourseName(ctx context.Context, name string, store CourseStore, embedding EmbeddingProvider) (string, error) {
	titles, err := store.ListCourseTitles(ctx)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(name)
	for _, t := range titles {
		if strings.EqualFold(t, name) {
			return t, nil
		}
	}
	for _, t := range titles {
		if strings.Contains(strings.ToLower(t), lower) {
			return t, nil
		}
	}

	if embedding == nil {
		return "", ErrCourseNotFound
	}
	embs, err := embedding.Embed(ctx, []string{name})
	if err != nil || len(embs) == 0 {
		return "", ErrCourseNotFound
	}
	titleEmbs, err := store.CourseTitleEmbeddings(ctx)
	if err != nil {
		return "", err
	}

	const minTitleScore = 0.5
	best, bestScore := "", float32(minTitleScore)
	for title, emb := range titleEmbs {
		if score := CosineSimilarity(embs[0], emb); score > bestScore {
			best, bestScore = title, score
		}
	}
	if best == "" {
		return "", ErrCourseNotFound
	}
	return best, nil
}
