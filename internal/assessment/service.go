package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/brightclass/brightclass-lms/internal/grading"
	"github.com/brightclass/brightclass-lms/internal/logger"
	"github.com/brightclass/brightclass-lms/internal/notify"
	"github.com/brightclass/brightclass-lms/internal/users"
)

// UserDirectory resolves user ids to display names.
type UserDirectory interface {
	DisplayName(ctx context.Context, id string) (string, error)
}

// Service grades incoming submissions and records the outcome.
type Service struct {
	store    Store
	users    UserDirectory
	notifier notify.Notifier
	log      *logger.Logger
}

func NewService(store Store, dir UserDirectory, notifier notify.Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{store: store, users: dir, notifier: notifier, log: log.With("service", "submission")}
}

// Submit grades the submission against the authoritative question bank,
// persists the result, and emits the submission-completed notification.
// The score is computed here, never taken from the client. Each call
// records one new Result; repeat submissions are allowed and stack up as
// separate attempts.
func (s *Service) Submit(ctx context.Context, sub Submission) (DetailedResult, error) {
	bank, err := s.store.GetQuestionBank(ctx, sub.AssessmentID)
	if err != nil {
		return DetailedResult{}, err
	}

	userName, err := s.users.DisplayName(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return DetailedResult{}, notFoundf("user %s", sub.UserID)
		}
		return DetailedResult{}, err
	}

	graded := grading.Grade(toGradingQuestions(bank), toGradingAnswers(sub.Answers))
	for _, d := range graded.Dropped {
		s.log.Warn("dropping answer with unknown reference",
			"assessment_id", sub.AssessmentID,
			"question_id", d.QuestionID,
			"selected_option_id", d.SelectedOptionID)
	}

	rec := SubmissionRecord{
		AssessmentID: sub.AssessmentID,
		UserID:       sub.UserID,
		Score:        graded.Score,
	}
	for _, r := range graded.Records {
		if r.SelectedOptionID == "" {
			continue
		}
		rec.Answers = append(rec.Answers, SubmissionAnswer{
			QuestionID:       r.QuestionID,
			SelectedOptionID: r.SelectedOptionID,
		})
	}

	res, err := s.store.RecordSubmission(ctx, rec)
	if err != nil {
		return DetailedResult{}, err
	}

	// The result is durable at this point: a failed notification is an
	// operator concern, never the caller's.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.SubmissionCompleted(nctx, notify.Submission{
		ResultID:        res.ID,
		AssessmentID:    bank.ID,
		AssessmentTitle: bank.Title,
		UserID:          sub.UserID,
		Score:           res.Score,
		MaxScore:        bank.MaxScore(),
	}); err != nil {
		s.log.Error("submission notification failed", "result_id", res.ID, "err", err)
	}

	return buildDetailedResult(res, res.Answers, bank, userName), nil
}

func toGradingQuestions(a Assessment) []grading.Question {
	out := make([]grading.Question, 0, len(a.Questions))
	for _, q := range a.Questions {
		gq := grading.Question{ID: q.ID, Text: q.Text}
		for _, o := range q.Options {
			gq.Options = append(gq.Options, grading.Option{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect})
		}
		out = append(out, gq)
	}
	return out
}

func toGradingAnswers(answers []SubmissionAnswer) []grading.Answer {
	out := make([]grading.Answer, 0, len(answers))
	for _, a := range answers {
		out = append(out, grading.Answer{QuestionID: a.QuestionID, SelectedOptionID: a.SelectedOptionID})
	}
	return out
}
