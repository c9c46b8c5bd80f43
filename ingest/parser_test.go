package ingest

import (
	"testing"
)

const sampleScript = `Course Title: Introduction to MCP
Course Link: https://example.com/mcp
Course Instructor: Ada Lovelace

Lesson 0: Overview
Lesson Link: https://example.com/mcp/0
Welcome to the course. This lesson covers the basics.

Lesson 1: Servers
Building a server starts with the protocol handshake.
More details follow here.
`

func TestParseCourseScript(t *testing.T) {
	script, err := ParseCourseScript(sampleScript, "fallback")
	if err != nil {
		t.Fatal(err)
	}

	c := script.Course
	if c.Title != "Introduction to MCP" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Link != "https://example.com/mcp" || c.Instructor != "Ada Lovelace" {
		t.Errorf("metadata = %q / %q", c.Link, c.Instructor)
	}
	if len(c.Lessons) != 2 {
		t.Fatalf("got %d lessons, want 2", len(c.Lessons))
	}
	if c.Lessons[0].Link != "https://example.com/mcp/0" {
		t.Errorf("lesson 0 link = %q", c.Lessons[0].Link)
	}
	if c.Lessons[1].Link != "" {
		t.Errorf("lesson 1 link = %q, want empty", c.Lessons[1].Link)
	}

	if len(script.Lessons) != 2 {
		t.Fatalf("got %d lesson bodies, want 2", len(script.Lessons))
	}
	if script.Lessons[0].Content != "Welcome to the course. This lesson covers the basics." {
		t.Errorf("lesson 0 content = %q", script.Lessons[0].Content)
	}
	if script.Lessons[1].Content != "Building a server starts with the protocol handshake.\nMore details follow here." {
		t.Errorf("lesson 1 content = %q", script.Lessons[1].Content)
	}
}

func TestParseCourseScriptDefaults(t *testing.T) {
	script, err := ParseCourseScript("Just some text without headers.", "my_course")
	if err != nil {
		t.Fatal(err)
	}
	if script.Course.Title != "my_course" {
		t.Errorf("Title = %q, want fallback", script.Course.Title)
	}
	if script.Preamble != "Just some text without headers." {
		t.Errorf("Preamble = %q", script.Preamble)
	}
	if len(script.Lessons) != 0 {
		t.Errorf("lessons = %+v, want none", script.Lessons)
	}
}

func TestParseCourseScriptCRLF(t *testing.T) {
	script, err := ParseCourseScript("Course Title: X\r\n\r\nLesson 1: A\r\nbody\r\n", "f")
	if err != nil {
		t.Fatal(err)
	}
	if script.Course.Title != "X" || len(script.Lessons) != 1 || script.Lessons[0].Content != "body" {
		t.Errorf("parsed = %+v", script)
	}
}
