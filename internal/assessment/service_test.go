package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/brightclass/brightclass-lms/internal/logger"
	"github.com/brightclass/brightclass-lms/internal/notify"
)

type fakeDirectory struct{ names map[string]string }

func (d fakeDirectory) DisplayName(ctx context.Context, id string) (string, error) {
	if n, ok := d.names[id]; ok {
		return n, nil
	}
	return "", errors.New("user not found")
}

type captureNotifier struct {
	got []notify.Submission
	err error
}

func (n *captureNotifier) SubmissionCompleted(ctx context.Context, sub notify.Submission) error {
	n.got = append(n.got, sub)
	return n.err
}

func newTestService(t *testing.T, notifier notify.Notifier) (*Service, *SQLStore) {
	t.Helper()
	store, _ := newTestStore(t)
	dir := fakeDirectory{names: map[string]string{"u1": "Ada Lovelace"}}
	return NewService(store, dir, notifier, logger.NewNop()), store
}

func TestSubmitGradesServerSide(t *testing.T) {
	notifier := &captureNotifier{}
	svc, store := newTestService(t, notifier)
	ctx := context.Background()
	a := mustPut(t, store, testAssessment())

	det, err := svc.Submit(ctx, Submission{
		AssessmentID: a.ID,
		UserID:       "u1",
		Answers: []SubmissionAnswer{
			{QuestionID: a.Questions[0].ID, SelectedOptionID: a.Questions[0].Options[1].ID}, // correct
			{QuestionID: a.Questions[1].ID, SelectedOptionID: a.Questions[1].Options[1].ID}, // wrong
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if det.Score != 1 || det.MaxScore != 2 {
		t.Fatalf("graded %d/%d, want 1/2", det.Score, det.MaxScore)
	}
	if det.UserName != "Ada Lovelace" {
		t.Fatalf("user name = %q", det.UserName)
	}
	if len(det.Questions) != 2 {
		t.Fatalf("review questions = %d, want 2", len(det.Questions))
	}
	if !det.Questions[0].IsCorrect || det.Questions[1].IsCorrect {
		t.Fatalf("per-question review wrong: %+v", det.Questions)
	}

	if len(notifier.got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.got))
	}
	n := notifier.got[0]
	if n.AssessmentID != a.ID || n.UserID != "u1" || n.Score != 1 || n.MaxScore != 2 {
		t.Fatalf("notification payload wrong: %+v", n)
	}

	// the result is durable and readable back
	res, err := store.GetResultByUserAndAssessment(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("read back result: %v", err)
	}
	if res.Score != 1 || len(res.Answers) != 2 {
		t.Fatalf("stored result wrong: %+v", res)
	}
}

func TestSubmitDropsUnknownReferences(t *testing.T) {
	svc, store := newTestService(t, &captureNotifier{})
	ctx := context.Background()
	a := mustPut(t, store, testAssessment())

	det, err := svc.Submit(ctx, Submission{
		AssessmentID: a.ID,
		UserID:       "u1",
		Answers: []SubmissionAnswer{
			{QuestionID: "tampered-question", SelectedOptionID: "x"},
			{QuestionID: a.Questions[0].ID, SelectedOptionID: "not-an-option"},
			{QuestionID: a.Questions[1].ID, SelectedOptionID: a.Questions[1].Options[0].ID}, // correct
		},
	})
	if err != nil {
		t.Fatalf("submit with stale payload: %v", err)
	}
	if det.Score != 1 {
		t.Fatalf("score = %d, want 1 (dropped answers must not count)", det.Score)
	}

	res, err := store.GetResultByUserAndAssessment(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("read back result: %v", err)
	}
	if len(res.Answers) != 1 {
		t.Fatalf("stored answers = %d, want only the valid one", len(res.Answers))
	}
}

func TestSubmitUnknownAssessment(t *testing.T) {
	svc, _ := newTestService(t, &captureNotifier{})
	_, err := svc.Submit(context.Background(), Submission{AssessmentID: "missing", UserID: "u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubmitSurvivesNotificationFailure(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("broker down")}
	svc, store := newTestService(t, notifier)
	ctx := context.Background()
	a := mustPut(t, store, testAssessment())

	det, err := svc.Submit(ctx, Submission{
		AssessmentID: a.ID,
		UserID:       "u1",
		Answers: []SubmissionAnswer{
			{QuestionID: a.Questions[0].ID, SelectedOptionID: a.Questions[0].Options[1].ID},
		},
	})
	if err != nil {
		t.Fatalf("submit must not fail on notification error: %v", err)
	}
	if det.Score != 1 {
		t.Fatalf("score = %d, want 1", det.Score)
	}
	if _, err := store.GetResultByUserAndAssessment(ctx, "u1", a.ID); err != nil {
		t.Fatalf("result not durable: %v", err)
	}
}
