package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/wicaksana/lectern"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func sampleCourse() lectern.Course {
	return lectern.Course{
		Title:      "Introduction to MCP",
		Link:       "https://example.com/mcp",
		Instructor: "Ada Lovelace",
		Lessons: []lectern.Lesson{
			{Number: 0, Title: "Overview", Link: "https://example.com/mcp/0"},
			{Number: 1, Title: "Servers"},
		},
		TitleEmbedding: []float32{0.1, 0.9},
		CreatedAt:      1000,
	}
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestAddAndGetCourse(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.AddCourse(ctx, sampleCourse(), nil); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	got, err := s.GetCourse(ctx, "Introduction to MCP")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.Instructor != "Ada Lovelace" || got.Link != "https://example.com/mcp" {
		t.Errorf("course = %+v", got)
	}
	if len(got.Lessons) != 2 || got.Lessons[1].Title != "Servers" {
		t.Errorf("lessons = %+v", got.Lessons)
	}
	if len(got.TitleEmbedding) != 2 {
		t.Errorf("title embedding = %v", got.TitleEmbedding)
	}

	_, err = s.GetCourse(ctx, "Missing")
	if !errors.Is(err, lectern.ErrCourseNotFound) {
		t.Errorf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestAddCourseReplacesChunks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	course := sampleCourse()

	first := []lectern.CourseChunk{
		{CourseTitle: course.Title, LessonNumber: 0, Content: "old", Embedding: []float32{1, 0}},
		{CourseTitle: course.Title, LessonNumber: 1, Content: "old too", Embedding: []float32{1, 0}},
	}
	if err := s.AddCourse(ctx, course, first); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	second := []lectern.CourseChunk{
		{CourseTitle: course.Title, LessonNumber: 0, Content: "new", Embedding: []float32{1, 0}},
	}
	if err := s.AddCourse(ctx, course, second); err != nil {
		t.Fatalf("AddCourse (replace): %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, lectern.ChunkFilter{})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 1 || got[0].Content != "new" {
		t.Errorf("chunks after replace = %+v", got)
	}
}

func TestListCourseTitlesOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := sampleCourse()
	b := lectern.Course{Title: "Advanced Retrieval", CreatedAt: 2000}
	if err := s.AddCourse(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCourse(ctx, b, nil); err != nil {
		t.Fatal(err)
	}

	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		t.Fatalf("ListCourseTitles: %v", err)
	}
	if len(titles) != 2 || titles[0] != "Introduction to MCP" || titles[1] != "Advanced Retrieval" {
		t.Errorf("titles = %v", titles)
	}
}

func TestSearchChunksRankingAndFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	course := sampleCourse()

	chunks := []lectern.CourseChunk{
		{CourseTitle: course.Title, LessonNumber: 0, Content: "close", Position: 0, Embedding: []float32{1, 0}},
		{CourseTitle: course.Title, LessonNumber: 1, Content: "far", Position: 1, Embedding: []float32{0, 1}},
		{CourseTitle: course.Title, LessonNumber: lectern.CourseLevel, Content: "course level", Position: 2, Embedding: []float32{0.9, 0.1}},
	}
	if err := s.AddCourse(ctx, course, chunks); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 2, lectern.ChunkFilter{})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Content != "close" || got[1].Content != "course level" {
		t.Errorf("ranking = %q then %q", got[0].Content, got[1].Content)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %v then %v", got[0].Score, got[1].Score)
	}

	one := 1
	got, err = s.SearchChunks(ctx, []float32{1, 0}, 10, lectern.ChunkFilter{
		CourseTitle:  course.Title,
		LessonNumber: &one,
	})
	if err != nil {
		t.Fatalf("SearchChunks (filtered): %v", err)
	}
	if len(got) != 1 || got[0].Content != "far" {
		t.Errorf("filtered = %+v", got)
	}
}

func TestCourseTitleEmbeddings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	with := sampleCourse()
	without := lectern.Course{Title: "No Embedding", CreatedAt: 2000}
	if err := s.AddCourse(ctx, with, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCourse(ctx, without, nil); err != nil {
		t.Fatal(err)
	}

	embs, err := s.CourseTitleEmbeddings(ctx)
	if err != nil {
		t.Fatalf("CourseTitleEmbeddings: %v", err)
	}
	if len(embs) != 1 {
		t.Fatalf("got %d embeddings, want 1", len(embs))
	}
	if got := embs["Introduction to MCP"]; len(got) != 2 {
		t.Errorf("embedding = %v", got)
	}
}
