package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/logger"
)

type fakeProvider struct{ bank assessment.Assessment }

func (p fakeProvider) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	return p.bank, nil
}

type fakeSubmitter struct {
	calls atomic.Int32
	err   error

	mu   sync.Mutex
	last assessment.Submission
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub assessment.Submission) (assessment.DetailedResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = sub
	f.mu.Unlock()
	if f.err != nil {
		return assessment.DetailedResult{}, f.err
	}
	return assessment.DetailedResult{
		ResultID: "r1",
		Score:    len(sub.Answers),
		MaxScore: 2,
	}, nil
}

func twoQuestionBank() assessment.Assessment {
	return assessment.Assessment{
		ID: "a1",
		Questions: []assessment.Question{
			{ID: "q1", Options: []assessment.Option{{ID: "q1a"}, {ID: "q1b"}}},
			{ID: "q2", Options: []assessment.Option{{ID: "q2a"}, {ID: "q2b"}}},
		},
	}
}

func startSession(t *testing.T, sub Submitter, opts ...Option) *Session {
	t.Helper()
	s, err := Start(context.Background(), fakeProvider{bank: twoQuestionBank()}, sub, "a1", "u1", logger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return s
}

func TestStartBudgetsOneMinutePerQuestion(t *testing.T) {
	s := startSession(t, &fakeSubmitter{})
	if got := s.Remaining(); got != 2*PerQuestionSeconds {
		t.Fatalf("remaining = %d, want %d", got, 2*PerQuestionSeconds)
	}
	if s.State() != StateInProgress {
		t.Fatalf("state = %v, want in_progress", s.State())
	}
}

func TestSelectAndClearAnswer(t *testing.T) {
	s := startSession(t, &fakeSubmitter{})
	if err := s.SelectAnswer("q1", "q1a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SelectAnswer("q1", "q1b"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if got := s.AnsweredCount(); got != 1 {
		t.Fatalf("answered = %d, want 1", got)
	}
	if err := s.SelectAnswer("nope", "x"); err == nil {
		t.Fatal("unknown question accepted")
	}
	if err := s.ClearAnswer("q1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := s.AnsweredCount(); got != 0 {
		t.Fatalf("answered after clear = %d, want 0", got)
	}
}

func TestManualSubmitRejectsUnanswered(t *testing.T) {
	sub := &fakeSubmitter{}
	s := startSession(t, sub)
	if err := s.SelectAnswer("q1", "q1a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Submit(context.Background()); !errors.Is(err, ErrUnanswered) {
		t.Fatalf("err = %v, want ErrUnanswered", err)
	}
	if sub.calls.Load() != 0 {
		t.Fatal("submitter called despite rejection")
	}
	if s.State() != StateInProgress {
		t.Fatalf("state = %v, want in_progress", s.State())
	}
}

func TestConcurrentTriggersSubmitExactlyOnce(t *testing.T) {
	sub := &fakeSubmitter{}
	s := startSession(t, sub)
	_ = s.SelectAnswer("q1", "q1a")
	_ = s.SelectAnswer("q2", "q2b")

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Submit(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ReportIntegrityViolation(ctx, "blur")
		}()
	}
	wg.Wait()

	if got := sub.calls.Load(); got != 1 {
		t.Fatalf("submitter called %d times, want exactly 1", got)
	}
	if s.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", s.State())
	}
	if s.Result() == nil {
		t.Fatal("result not recorded")
	}
}

func TestTimeExpirySubmitsPartialAnswers(t *testing.T) {
	sub := &fakeSubmitter{}
	var notices []Notice
	s := startSession(t, sub, WithNoticeFunc(func(n Notice) { notices = append(notices, n) }))
	_ = s.SelectAnswer("q1", "q1b")

	ctx := context.Background()
	for i := 0; i < 2*PerQuestionSeconds; i++ {
		s.Tick(ctx)
	}

	if got := sub.calls.Load(); got != 1 {
		t.Fatalf("submitter called %d times, want 1", got)
	}
	sub.mu.Lock()
	answers := sub.last.Answers
	sub.mu.Unlock()
	if len(answers) != 1 || answers[0].QuestionID != "q1" {
		t.Fatalf("submitted answers = %+v, want only q1", answers)
	}
	if s.Reason() != ReasonTimeExpired {
		t.Fatalf("reason = %q, want %q", s.Reason(), ReasonTimeExpired)
	}
	if len(notices) == 0 || notices[len(notices)-1].Kind != "blocking" {
		t.Fatalf("no blocking notice surfaced: %+v", notices)
	}

	// further ticks are no-ops once the session left in_progress
	s.Tick(ctx)
	if got := sub.calls.Load(); got != 1 {
		t.Fatalf("tick after completion resubmitted: %d calls", got)
	}
}

func TestThirdViolationForcesSubmission(t *testing.T) {
	sub := &fakeSubmitter{}
	var notices []Notice
	s := startSession(t, sub, WithNoticeFunc(func(n Notice) { notices = append(notices, n) }))
	ctx := context.Background()

	s.ReportIntegrityViolation(ctx, "tab-switch")
	s.ReportIntegrityViolation(ctx, "tab-switch")
	if sub.calls.Load() != 0 {
		t.Fatal("submitted before the violation limit")
	}
	warnings := 0
	for _, n := range notices {
		if n.Kind == "warning" {
			warnings++
		}
	}
	if warnings != 2 {
		t.Fatalf("warnings = %d, want 2", warnings)
	}

	s.ReportIntegrityViolation(ctx, "tab-switch")
	if sub.calls.Load() != 1 {
		t.Fatal("third violation did not submit")
	}
	if s.Reason() != ReasonViolations {
		t.Fatalf("reason = %q, want %q", s.Reason(), ReasonViolations)
	}

	// a fourth violation after completion is a no-op
	s.ReportIntegrityViolation(ctx, "tab-switch")
	if sub.calls.Load() != 1 {
		t.Fatal("violation after completion resubmitted")
	}
	if s.Violations() != 3 {
		t.Fatalf("violations = %d, want 3", s.Violations())
	}
}

func TestFailedSubmissionStaysSubmitting(t *testing.T) {
	wantErr := errors.New("connection refused")
	sub := &fakeSubmitter{err: wantErr}
	var notices []Notice
	s := startSession(t, sub, WithNoticeFunc(func(n Notice) { notices = append(notices, n) }))
	_ = s.SelectAnswer("q1", "q1a")
	_ = s.SelectAnswer("q2", "q2a")

	if err := s.Submit(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if s.State() != StateSubmitting {
		t.Fatalf("state = %v, want submitting (no silent retry)", s.State())
	}
	if !errors.Is(s.Err(), wantErr) {
		t.Fatalf("stored err = %v", s.Err())
	}
	if len(notices) == 0 || notices[len(notices)-1].Kind != "error" {
		t.Fatalf("no error notice surfaced: %+v", notices)
	}

	// the guard already fired; a retry is rejected, never re-sent
	if err := s.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("retry err = %v, want ErrNotInProgress", err)
	}
	if sub.calls.Load() != 1 {
		t.Fatalf("submitter called %d times, want 1", sub.calls.Load())
	}
}

func TestAnswersLockedAfterExpiry(t *testing.T) {
	sub := &fakeSubmitter{}
	s := startSession(t, sub)
	ctx := context.Background()
	for i := 0; i < 2*PerQuestionSeconds; i++ {
		s.Tick(ctx)
	}
	if err := s.SelectAnswer("q1", "q1a"); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("select after expiry: %v, want ErrNotInProgress", err)
	}
}
