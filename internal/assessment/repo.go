package assessment

import "context"

type ListOpts struct {
	CourseID string
	Limit    int
	Offset   int
}

// SubmissionRecord is the persisted outcome of grading one submission.
// Answers holds only the answers that matched the question bank.
type SubmissionRecord struct {
	AssessmentID string
	UserID       string
	Score        int
	Answers      []SubmissionAnswer
}

type Store interface {
	// PutAssessment creates the assessment, or replaces its full question
	// set when it already exists (delete-then-recreate, one transaction).
	// The returned copy carries the minted ids.
	PutAssessment(ctx context.Context, a Assessment) (Assessment, error)
	// GetAssessment is the student-safe view: correctness flags stripped.
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	// GetQuestionBank is the authoritative view used for grading and review.
	GetQuestionBank(ctx context.Context, id string) (Assessment, error)
	ListAssessments(ctx context.Context, opts ListOpts) ([]Summary, error)

	// DeleteAssessment removes the assessment and everything that
	// transitively references it, in dependency order, in one transaction.
	DeleteAssessment(ctx context.Context, id string) error

	// RecordSubmission persists one Result with its StudentAnswers as a
	// single write, minting the result id and attempt timestamp.
	RecordSubmission(ctx context.Context, rec SubmissionRecord) (Result, error)
	// GetResultByUserAndAssessment returns the user's result for the
	// assessment. Multiple attempts are possible; the latest attempt_date
	// wins, ties broken by id for a stable read.
	GetResultByUserAndAssessment(ctx context.Context, userID, assessmentID string) (Result, error)
	ListResultsByAssessment(ctx context.Context, assessmentID string) ([]ResultSummary, error)
	// GetDetailedResult re-derives the per-question review against the
	// current question bank, tolerating questions and options edited away
	// since the attempt.
	GetDetailedResult(ctx context.Context, resultID string) (DetailedResult, error)
}
