package domain

import (
	"errors"
	"testing"
	"time"
)

func fourQuestions() []Question {
	opts := []string{"a", "b", "c", "d"}
	return []Question{
		{ID: "1", Prompt: "p1", Options: opts, CorrectIndex: 0},
		{ID: "2", Prompt: "p2", Options: opts, CorrectIndex: 0},
		{ID: "3", Prompt: "p3", Options: opts, CorrectIndex: 2},
		{ID: "4", Prompt: "p4", Options: opts, CorrectIndex: 0},
	}
}

func TestScore(t *testing.T) {
	qs := fourQuestions()
	cases := []struct {
		name    string
		answers AnswerSet
		want    int
	}{
		{"all correct", AnswerSet{"1": 0, "2": 0, "3": 2, "4": 0}, 100},
		{"three of four", AnswerSet{"1": 0, "2": 0, "3": 2, "4": 1}, 75},
		{"none", AnswerSet{"1": 1, "2": 1, "3": 1, "4": 1}, 0},
		{"one of four", AnswerSet{"1": 0, "2": 3, "3": 3, "4": 3}, 25},
	}
	for _, tc := range cases {
		if got := Score(qs, tc.answers); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestScoreRoundsToNearest(t *testing.T) {
	opts := []string{"a", "b", "c", "d"}
	qs := []Question{
		{ID: "1", Options: opts},
		{ID: "2", Options: opts},
		{ID: "3", Options: opts},
	}
	// 2 of 3 = 66.67 -> 67
	if got := Score(qs, AnswerSet{"1": 0, "2": 0, "3": 1}); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := Score(nil, AnswerSet{}); got != 0 {
		t.Fatalf("expected empty quiz to score 0, got %d", got)
	}
}

func TestPassedBoundary(t *testing.T) {
	if !Passed(75) {
		t.Fatalf("75 must pass")
	}
	if Passed(74) {
		t.Fatalf("74 must not pass")
	}
}

func TestAnswerSetCovers(t *testing.T) {
	qs := fourQuestions()
	if (AnswerSet{"1": 0, "2": 0, "3": 0}).Covers(qs) {
		t.Fatalf("three answers must not cover four questions")
	}
	if (AnswerSet{"1": 0, "2": 0, "3": 0, "x": 0}).Covers(qs) {
		t.Fatalf("foreign id must not count")
	}
	if !(AnswerSet{"1": 0, "2": 0, "3": 0, "4": 0}).Covers(qs) {
		t.Fatalf("expected full coverage")
	}
}

func TestQuestionValidate(t *testing.T) {
	q := Question{ID: "q", Options: []string{"a", "b", "c"}}
	if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected invalid question for 3 options, got %v", err)
	}
	q = Question{ID: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 4}
	if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected invalid question for index 4, got %v", err)
	}
	q.CorrectIndex = 3
	if err := q.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProgressUpsertKeepsOneEntry(t *testing.T) {
	p := Progress{}
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	p.Upsert(ProgressEntry{CourseID: "c", LessonID: "1", Completed: true, CompletedAt: first})
	p.Upsert(ProgressEntry{CourseID: "c", LessonID: "1", Completed: true, CompletedAt: second})

	if len(p["c"]) != 1 {
		t.Fatalf("expected one entry, got %d", len(p["c"]))
	}
	entry, _ := p.Entry("c", "1")
	if !entry.CompletedAt.Equal(second) {
		t.Fatalf("expected latest timestamp, got %v", entry.CompletedAt)
	}
	if p.CompletedLessons("c") != 1 {
		t.Fatalf("expected one completed lesson")
	}
}
