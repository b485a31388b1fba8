// Package session implements the client-resident exam session: a countdown
// driven state machine over a fetched question bank, with integrity-violation
// tracking and a single-submission guarantee.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightclass/brightclass-lms/internal/assessment"
	"github.com/brightclass/brightclass-lms/internal/logger"
)

type State int32

const (
	StateLoading State = iota
	StateInProgress
	StateSubmitting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Reason identifies what triggered a submission.
type Reason string

const (
	ReasonManual      Reason = "manual"
	ReasonTimeExpired Reason = "time expired"
	ReasonViolations  Reason = "multiple violations"
)

// PerQuestionSeconds is the fixed time budget per question.
const PerQuestionSeconds = 60

// ViolationLimit is the violation count that forces submission.
const ViolationLimit = 3

var (
	// ErrNotInProgress is returned by operations only valid while the
	// session is running.
	ErrNotInProgress = errors.New("session not in progress")
	// ErrUnanswered rejects a manual submit while questions remain
	// unanswered. Automatic triggers ignore it.
	ErrUnanswered = errors.New("unanswered questions remain")
	// ErrSubmissionInFlight is returned when a trigger loses the race for
	// the one-shot guard.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Notice is a user-facing message surfaced by the session (violation
// warnings, the time-expired blocker, submission failures).
type Notice struct {
	Kind    string `json:"kind"` // "warning" | "blocking" | "error"
	Message string `json:"message"`
}

// BankProvider fetches the student-safe question bank at session start.
type BankProvider interface {
	GetAssessment(ctx context.Context, id string) (assessment.Assessment, error)
}

// Submitter transmits the finished submission. In production this is an
// HTTP client against POST /submissions; tests plug in fakes.
type Submitter interface {
	Submit(ctx context.Context, sub assessment.Submission) (assessment.DetailedResult, error)
}

type Option func(*Session)

// WithNoticeFunc registers a callback for user-facing notices.
func WithNoticeFunc(fn func(Notice)) Option {
	return func(s *Session) { s.notify = fn }
}

// Session is one student's run through one assessment. All answer-map
// mutations happen under mu; the InProgress→Submitting transition is a
// compare-and-swap so concurrent triggers (timer expiry, a third violation,
// a manual click) collapse into exactly one submission.
type Session struct {
	state atomic.Int32

	mu         sync.Mutex
	answers    map[string]string // questionID -> selected optionID
	remaining  int64             // seconds
	violations int
	reason     Reason
	result     *assessment.DetailedResult
	lastErr    error

	bank      assessment.Assessment
	userID    string
	submitter Submitter
	notify    func(Notice)
	log       *logger.Logger
}

// Start fetches the question bank and opens the session with a time budget
// of one minute per question.
func Start(ctx context.Context, provider BankProvider, submitter Submitter, assessmentID, userID string, log *logger.Logger, opts ...Option) (*Session, error) {
	bank, err := provider.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	s := &Session{
		answers:   make(map[string]string, len(bank.Questions)),
		remaining: int64(len(bank.Questions) * PerQuestionSeconds),
		bank:      bank,
		userID:    userID,
		submitter: submitter,
		log:       log.With("session", assessmentID, "user", userID),
	}
	for _, o := range opts {
		o(s)
	}
	if s.notify == nil {
		s.notify = func(n Notice) { s.log.Info("notice", "kind", n.Kind, "message", n.Message) }
	}
	s.state.Store(int32(StateInProgress))
	return s, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *Session) Violations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Reason reports what triggered the submission. Empty until triggered.
func (s *Session) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Result returns the graded result once the session completed.
func (s *Session) Result() *assessment.DetailedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the last submission error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SelectAnswer records the selected option, overwriting any prior choice.
func (s *Session) SelectAnswer(questionID, optionID string) error {
	if s.State() != StateInProgress {
		return ErrNotInProgress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining <= 0 {
		return ErrNotInProgress
	}
	if !s.hasQuestion(questionID) {
		return fmt.Errorf("unknown question %s", questionID)
	}
	s.answers[questionID] = optionID
	return nil
}

// ClearAnswer resets the question's selection to unset.
func (s *Session) ClearAnswer(questionID string) error {
	if s.State() != StateInProgress {
		return ErrNotInProgress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, questionID)
	return nil
}

func (s *Session) hasQuestion(id string) bool {
	for _, q := range s.bank.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Tick advances the countdown by one second. Hitting zero surfaces a
// blocking notice and submits with the time-expired reason.
func (s *Session) Tick(ctx context.Context) {
	if s.State() != StateInProgress {
		return
	}
	s.mu.Lock()
	if s.remaining > 0 {
		s.remaining--
	}
	expired := s.remaining <= 0
	s.mu.Unlock()

	if expired {
		s.notify(Notice{Kind: "blocking", Message: "Time is up. Your answers are being submitted."})
		_ = s.trigger(ctx, ReasonTimeExpired)
	}
}

// Run drives Tick once per second until the session leaves InProgress or
// the context is cancelled. Navigating away (context cancel) abandons the
// session; no server-side cleanup exists or is needed.
func (s *Session) Run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(ctx)
			if s.State() != StateInProgress {
				return
			}
		}
	}
}

// ReportIntegrityViolation records a tab-switch or focus-loss event. The
// first two produce warnings; the third forces submission.
func (s *Session) ReportIntegrityViolation(ctx context.Context, kind string) {
	if s.State() != StateInProgress {
		return
	}
	s.mu.Lock()
	s.violations++
	count := s.violations
	s.mu.Unlock()

	s.log.Warn("integrity violation", "kind", kind, "count", count)
	if count >= ViolationLimit {
		_ = s.trigger(ctx, ReasonViolations)
		return
	}
	s.notify(Notice{
		Kind:    "warning",
		Message: fmt.Sprintf("Leaving the exam tab is recorded (%d/%d). The exam is submitted automatically after %d violations.", count, ViolationLimit, ViolationLimit),
	})
}

// Submit is the user-initiated submission. It is rejected while questions
// remain unanswered; automatic triggers are not.
func (s *Session) Submit(ctx context.Context) error {
	if s.State() != StateInProgress {
		return ErrNotInProgress
	}
	s.mu.Lock()
	unanswered := len(s.bank.Questions) - len(s.answers)
	s.mu.Unlock()
	if unanswered > 0 {
		return fmt.Errorf("%w: %d left", ErrUnanswered, unanswered)
	}
	return s.trigger(ctx, ReasonManual)
}

// trigger is the single critical section. The compare-and-swap is the
// one-shot guard: the first caller flips InProgress→Submitting, every later
// caller observes the swap failing and no-ops.
func (s *Session) trigger(ctx context.Context, reason Reason) error {
	if !s.state.CompareAndSwap(int32(StateInProgress), int32(StateSubmitting)) {
		return ErrSubmissionInFlight
	}

	s.mu.Lock()
	s.reason = reason
	sub := assessment.Submission{
		AssessmentID: s.bank.ID,
		UserID:       s.userID,
	}
	// Unanswered questions are simply absent from the payload.
	for _, q := range s.bank.Questions {
		if optID, ok := s.answers[q.ID]; ok {
			sub.Answers = append(sub.Answers, assessment.SubmissionAnswer{
				QuestionID:       q.ID,
				SelectedOptionID: optID,
			})
		}
	}
	s.mu.Unlock()

	res, err := s.submitter.Submit(ctx, sub)
	if err != nil {
		// Stay in Submitting: the guard is one-shot, so there is no
		// automatic retry; the server records one Result per call, so a
		// reload-and-resubmit cannot double-count this attempt.
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.notify(Notice{Kind: "error", Message: "Submitting your exam failed. Please reload the page."})
		s.log.Error("submission failed", "reason", string(reason), "err", err)
		return err
	}

	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	s.state.Store(int32(StateCompleted))
	s.log.Info("submission completed", "reason", string(reason), "score", res.Score, "max_score", res.MaxScore)
	return nil
}
