// Package grading computes the authoritative score for a submission.
// Grading is a pure function of the question bank snapshot and the answer
// list: identical inputs always yield identical output, and client-reported
// scores are never consulted.
package grading

// Option is the minimal option view the grader needs.
type Option struct {
	ID        string
	Text      string
	IsCorrect bool
}

// Question is the minimal question view the grader needs.
type Question struct {
	ID      string
	Text    string
	Options []Option
}

// Answer is one submitted (question, selected option) pair.
type Answer struct {
	QuestionID       string
	SelectedOptionID string
}

// Record is the grading outcome for one question of the bank. Questions the
// student did not answer (or whose answer was dropped) have an empty
// SelectedOptionID. CorrectOptionID is empty when no option is marked
// correct; when several are, the first marked one wins.
type Record struct {
	QuestionID       string
	SelectedOptionID string
	CorrectOptionID  string
	IsCorrect        bool
}

// Graded is the full outcome of grading one submission.
type Graded struct {
	Score    int
	MaxScore int
	// Records holds one entry per question of the bank, in bank order.
	Records []Record
	// Dropped collects answers referencing a question not in the bank or an
	// option not in that question. They are excluded from scoring; callers
	// log them (stale or tampered client payloads are not fatal).
	Dropped []Answer
}

// Grade scores the submitted answers against the question bank. The score is
// the count of answers whose selected option is marked correct; it can never
// exceed the question count.
func Grade(questions []Question, answers []Answer) Graded {
	byQuestion := make(map[string]*Question, len(questions))
	for i := range questions {
		byQuestion[questions[i].ID] = &questions[i]
	}

	selected := make(map[string]string, len(answers))
	var dropped []Answer
	for _, a := range answers {
		q, ok := byQuestion[a.QuestionID]
		if !ok {
			dropped = append(dropped, a)
			continue
		}
		if findOption(q.Options, a.SelectedOptionID) == nil {
			dropped = append(dropped, a)
			continue
		}
		// last write wins if a question id repeats in the payload
		selected[a.QuestionID] = a.SelectedOptionID
	}

	g := Graded{
		MaxScore: len(questions),
		Records:  make([]Record, 0, len(questions)),
		Dropped:  dropped,
	}
	for i := range questions {
		q := &questions[i]
		rec := Record{QuestionID: q.ID}
		if c := correctOption(q.Options); c != nil {
			rec.CorrectOptionID = c.ID
		}
		if optID, ok := selected[q.ID]; ok {
			rec.SelectedOptionID = optID
			opt := findOption(q.Options, optID)
			rec.IsCorrect = opt != nil && opt.IsCorrect
		}
		if rec.IsCorrect {
			g.Score++
		}
		g.Records = append(g.Records, rec)
	}
	return g
}

func findOption(opts []Option, id string) *Option {
	for i := range opts {
		if opts[i].ID == id {
			return &opts[i]
		}
	}
	return nil
}

func correctOption(opts []Option) *Option {
	for i := range opts {
		if opts[i].IsCorrect {
			return &opts[i]
		}
	}
	return nil
}
