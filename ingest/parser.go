package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wicaksana/lectern"
)

// LessonContent is one lesson with its transcript body, as parsed from a
// course script.
type LessonContent struct {
	Number  int
	Title   string
	Link    string
	Content string
}

// CourseScript is the parsed form of a course document: catalog metadata
// plus per-lesson content. Preamble holds any text before the first lesson
// marker.
type CourseScript struct {
	Course   lectern.Course
	Preamble string
	Lessons  []LessonContent
}

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// ParseCourseScript parses the course script format:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<transcript lines...>
//
// Header lines may appear in any order within the leading block. A missing
// title falls back to the provided default (typically the filename).
func ParseCourseScript(text, defaultTitle string) (CourseScript, error) {
	lines := strings.Split(normalizeText(text), "\n")

	script := CourseScript{}
	script.Course.Title = defaultTitle

	// Header block: consume leading metadata lines. The first line that is
	// neither blank nor a recognized header starts the body.
	i := 0
header:
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Course Title:"):
			script.Course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			script.Course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			script.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		default:
			break header
		}
	}
	if script.Course.Title == "" {
		return CourseScript{}, fmt.Errorf("course script has no title")
	}

	var current *LessonContent
	var body []string

	flush := func() {
		if current == nil {
			script.Preamble = strings.TrimSpace(strings.Join(body, "\n"))
		} else {
			current.Content = strings.TrimSpace(strings.Join(body, "\n"))
			script.Lessons = append(script.Lessons, *current)
		}
		body = body[:0]
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return CourseScript{}, fmt.Errorf("lesson number %q: %w", m[1], err)
			}
			current = &LessonContent{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}
		if current != nil && len(body) == 0 && strings.HasPrefix(trimmed, "Lesson Link:") {
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}
		body = append(body, line)
	}
	flush()

	for _, l := range script.Lessons {
		script.Course.Lessons = append(script.Course.Lessons, lectern.Lesson{
			Number: l.Number,
			Title:  l.Title,
			Link:   l.Link,
		})
	}
	return script, nil
}
