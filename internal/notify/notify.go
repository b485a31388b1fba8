// Package notify delivers submission-completed events to an external sink.
// Delivery is fire-and-forget: a failed publish is logged by the caller and
// never fails the submission it reports on.
package notify

import "context"

// Submission is the payload emitted after a result is durably recorded.
type Submission struct {
	ResultID        string `json:"result_id"`
	AssessmentID    string `json:"assessment_id"`
	AssessmentTitle string `json:"assessment_title"`
	UserID          string `json:"user_id"`
	Score           int    `json:"score"`
	MaxScore        int    `json:"max_score"`
}

type Notifier interface {
	SubmissionCompleted(ctx context.Context, n Submission) error
}

// Nop discards every notification. Used when no sink is configured.
type Nop struct{}

func (Nop) SubmissionCompleted(context.Context, Submission) error { return nil }
