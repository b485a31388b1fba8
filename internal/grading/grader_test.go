package grading

import (
	"reflect"
	"testing"
)

func bank() []Question {
	return []Question{
		{
			ID:   "q1",
			Text: "2+2?",
			Options: []Option{
				{ID: "q1a", Text: "3"},
				{ID: "q1b", Text: "4", IsCorrect: true},
				{ID: "q1c", Text: "5"},
			},
		},
		{
			ID:   "q2",
			Text: "capital of France?",
			Options: []Option{
				{ID: "q2a", Text: "Paris", IsCorrect: true},
				{ID: "q2b", Text: "Lyon"},
			},
		},
	}
}

func TestGradeScoresAgainstBank(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", SelectedOptionID: "q1b"}, // correct
		{QuestionID: "q2", SelectedOptionID: "q2b"}, // wrong
	}
	g := Grade(bank(), answers)
	if g.Score != 1 {
		t.Fatalf("score = %d, want 1", g.Score)
	}
	if g.MaxScore != 2 {
		t.Fatalf("max score = %d, want 2", g.MaxScore)
	}
	if len(g.Records) != 2 {
		t.Fatalf("records = %d, want one per bank question", len(g.Records))
	}
	if !g.Records[0].IsCorrect || g.Records[1].IsCorrect {
		t.Fatalf("per-question correctness wrong: %+v", g.Records)
	}
	if g.Records[1].CorrectOptionID != "q2a" {
		t.Fatalf("correct option = %q, want q2a", g.Records[1].CorrectOptionID)
	}
}

func TestGradeIsPure(t *testing.T) {
	answers := []Answer{{QuestionID: "q1", SelectedOptionID: "q1b"}}
	a := Grade(bank(), answers)
	b := Grade(bank(), answers)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs graded differently:\n%+v\n%+v", a, b)
	}
}

func TestGradeDropsUnknownReferences(t *testing.T) {
	answers := []Answer{
		{QuestionID: "nope", SelectedOptionID: "q1b"}, // unknown question
		{QuestionID: "q1", SelectedOptionID: "zzz"},   // option not in q1
		{QuestionID: "q2", SelectedOptionID: "q2a"},   // valid
	}
	g := Grade(bank(), answers)
	if g.Score != 1 {
		t.Fatalf("score = %d, want 1 (dropped answers must not count)", g.Score)
	}
	if len(g.Dropped) != 2 {
		t.Fatalf("dropped = %d, want 2: %+v", len(g.Dropped), g.Dropped)
	}
	// q1 ends up unanswered after its bad answer was dropped
	if g.Records[0].SelectedOptionID != "" {
		t.Fatalf("q1 selection = %q, want empty", g.Records[0].SelectedOptionID)
	}
}

func TestGradeLastAnswerWinsOnRepeat(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", SelectedOptionID: "q1a"},
		{QuestionID: "q1", SelectedOptionID: "q1b"},
	}
	g := Grade(bank(), answers)
	if g.Score != 1 {
		t.Fatalf("score = %d, want 1 (last answer wins)", g.Score)
	}
	if g.Records[0].SelectedOptionID != "q1b" {
		t.Fatalf("selection = %q, want q1b", g.Records[0].SelectedOptionID)
	}
}

func TestGradeEmptyInputs(t *testing.T) {
	g := Grade(nil, nil)
	if g.Score != 0 || g.MaxScore != 0 || len(g.Records) != 0 {
		t.Fatalf("empty bank graded nonzero: %+v", g)
	}
	g = Grade(bank(), nil)
	if g.Score != 0 || g.MaxScore != 2 {
		t.Fatalf("no answers: score=%d max=%d, want 0/2", g.Score, g.MaxScore)
	}
}

func TestGradeNoMarkedCorrectOption(t *testing.T) {
	qs := []Question{{
		ID: "q1", Text: "broken",
		Options: []Option{{ID: "a"}, {ID: "b"}},
	}}
	g := Grade(qs, []Answer{{QuestionID: "q1", SelectedOptionID: "a"}})
	if g.Score != 0 {
		t.Fatalf("score = %d, want 0", g.Score)
	}
	if g.Records[0].CorrectOptionID != "" {
		t.Fatalf("correct option = %q, want empty", g.Records[0].CorrectOptionID)
	}
}
