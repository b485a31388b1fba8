package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightclass/brightclass-lms/internal/logger"
	syncx "github.com/brightclass/brightclass-lms/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	log    *logger.Logger
}

func NewSQLStore(db *sql.DB, driver string, log *logger.Logger) *SQLStore {
	return &SQLStore{db: db, driver: driver, log: log.With("store", "assessment")}
}

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// --- Authoring ---

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) (out Assessment, err error) {
	if err := validateAssessment(a); err != nil {
		return Assessment{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Assessment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, a.ID).Scan(&exists)
	switch {
	case err == nil:
		// Replace-on-edit: drop the full question set and recreate it below.
		// Results and student answers are kept; detail reads tolerate the
		// orphaned references.
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE assessment_id=$1)`, a.ID); err != nil {
			return Assessment{}, err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE assessment_id=$1`, a.ID); err != nil {
			return Assessment{}, err
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE assessments SET course_id=$1, title=$2 WHERE id=$3`,
			a.CourseID, a.Title, a.ID); err != nil {
			return Assessment{}, err
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO assessments (id, course_id, title, created_by, created_at) VALUES ($1,$2,$3,$4,$5)`,
			a.ID, a.CourseID, a.Title, a.CreatedBy, now); err != nil {
			return Assessment{}, err
		}
	default:
		return Assessment{}, err
	}

	for qi := range a.Questions {
		q := &a.Questions[qi]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.AssessmentID = a.ID
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, assessment_id, text, position) VALUES ($1,$2,$3,$4)`,
			q.ID, a.ID, q.Text, qi); err != nil {
			return Assessment{}, err
		}
		for oi := range q.Options {
			o := &q.Options[oi]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.QuestionID = q.ID
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO options (id, question_id, text, is_correct, position) VALUES ($1,$2,$3,$4,$5)`,
				o.ID, q.ID, o.Text, o.IsCorrect, oi); err != nil {
				return Assessment{}, err
			}
		}
	}
	return a, nil
}

// validateAssessment enforces the authoring invariant: every question has
// exactly one option marked correct.
func validateAssessment(a Assessment) error {
	if strings.TrimSpace(a.Title) == "" {
		return validationf("assessment title required")
	}
	if len(a.Questions) == 0 {
		return validationf("assessment needs at least one question")
	}
	for i, q := range a.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return validationf("question %d: text required", i+1)
		}
		if len(q.Options) < 2 {
			return validationf("question %d: at least two options required", i+1)
		}
		correct := 0
		for j, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return validationf("question %d option %d: text required", i+1, j+1)
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return validationf("question %d: exactly one correct option required, got %d", i+1, correct)
		}
	}
	return nil
}

// --- Question bank ---

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	a, err := s.loadAssessment(ctx, s.db, id)
	if err != nil {
		return Assessment{}, err
	}
	// Strip correctness flags when serving to students.
	for qi := range a.Questions {
		for oi := range a.Questions[qi].Options {
			a.Questions[qi].Options[oi].IsCorrect = false
		}
	}
	return a, nil
}

func (s *SQLStore) GetQuestionBank(ctx context.Context, id string) (Assessment, error) {
	return s.loadAssessment(ctx, s.db, id)
}

func (s *SQLStore) loadAssessment(ctx context.Context, q dbtx, id string) (Assessment, error) {
	var a Assessment
	row := q.QueryRowContext(ctx, `SELECT id, course_id, title, created_by, created_at FROM assessments WHERE id=$1`, id)
	if err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.CreatedBy, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, notFoundf("assessment %s", id)
		}
		return Assessment{}, err
	}

	qrows, err := q.QueryContext(ctx,
		`SELECT id, text FROM questions WHERE assessment_id=$1 ORDER BY position`, id)
	if err != nil {
		return Assessment{}, err
	}
	defer qrows.Close()
	index := map[string]int{}
	for qrows.Next() {
		var qu Question
		if err := qrows.Scan(&qu.ID, &qu.Text); err != nil {
			return Assessment{}, err
		}
		qu.AssessmentID = a.ID
		index[qu.ID] = len(a.Questions)
		a.Questions = append(a.Questions, qu)
	}
	if err := qrows.Err(); err != nil {
		return Assessment{}, err
	}

	orows, err := q.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM options o JOIN questions q ON q.id=o.question_id
		 WHERE q.assessment_id=$1 ORDER BY o.question_id, o.position`, id)
	if err != nil {
		return Assessment{}, err
	}
	defer orows.Close()
	for orows.Next() {
		var o Option
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return Assessment{}, err
		}
		if qi, ok := index[o.QuestionID]; ok {
			a.Questions[qi].Options = append(a.Questions[qi].Options, o)
		}
	}
	return a, orows.Err()
}

func (s *SQLStore) ListAssessments(ctx context.Context, opts ListOpts) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []any{}
	where := ""
	if opts.CourseID != "" {
		where = "WHERE a.course_id=$1"
		args = append(args, opts.CourseID)
	}
	query := fmt.Sprintf(
		`SELECT a.id, a.course_id, a.title, a.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.assessment_id=a.id)
		 FROM assessments a %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.CourseID, &sm.Title, &sm.CreatedAt, &sm.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// --- Results ---

func (s *SQLStore) RecordSubmission(ctx context.Context, rec SubmissionRecord) (res Result, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, rec.AssessmentID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = notFoundf("assessment %s", rec.AssessmentID)
		}
		return Result{}, err
	}

	res = Result{
		ID:           uuid.NewString(),
		AssessmentID: rec.AssessmentID,
		UserID:       rec.UserID,
		Score:        rec.Score,
		AttemptDate:  time.Now().Unix(),
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO results (id, assessment_id, user_id, score, attempt_date) VALUES ($1,$2,$3,$4,$5)`,
		res.ID, res.AssessmentID, res.UserID, res.Score, res.AttemptDate); err != nil {
		return Result{}, err
	}
	for _, a := range rec.Answers {
		sa := StudentAnswer{
			ID:               uuid.NewString(),
			ResultID:         res.ID,
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			AssessmentID:     rec.AssessmentID,
			UserID:           rec.UserID,
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO student_answers (id, result_id, question_id, selected_option_id, assessment_id, user_id)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			sa.ID, sa.ResultID, sa.QuestionID, sa.SelectedOptionID, sa.AssessmentID, sa.UserID); err != nil {
			return Result{}, err
		}
		res.Answers = append(res.Answers, sa)
	}

	payload, _ := json.Marshal(map[string]any{
		"result_id":     res.ID,
		"assessment_id": res.AssessmentID,
		"user_id":       res.UserID,
		"score":         res.Score,
	})
	if err = syncx.AppendTx(ctx, tx, syncx.Event{
		Type:     "SubmissionRecorded",
		Key:      res.ID,
		DataJSON: string(payload),
	}); err != nil {
		return Result{}, err
	}
	return res, nil
}

// GetResultByUserAndAssessment returns the user's result for an assessment.
// Repeat attempts produce multiple rows; the latest attempt_date wins, ties
// broken by id so reads stay deterministic.
func (s *SQLStore) GetResultByUserAndAssessment(ctx context.Context, userID, assessmentID string) (Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assessment_id, user_id, score, attempt_date FROM results
		 WHERE user_id=$1 AND assessment_id=$2
		 ORDER BY attempt_date DESC, id DESC LIMIT 1`, userID, assessmentID)
	var r Result
	if err := row.Scan(&r.ID, &r.AssessmentID, &r.UserID, &r.Score, &r.AttemptDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, notFoundf("result for user %s on assessment %s", userID, assessmentID)
		}
		return Result{}, err
	}
	answers, err := s.loadAnswers(ctx, r.ID)
	if err != nil {
		return Result{}, err
	}
	r.Answers = answers
	return r, nil
}

func (s *SQLStore) loadAnswers(ctx context.Context, resultID string) ([]StudentAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, result_id, question_id, selected_option_id, assessment_id, user_id
		 FROM student_answers WHERE result_id=$1`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StudentAnswer
	for rows.Next() {
		var sa StudentAnswer
		if err := rows.Scan(&sa.ID, &sa.ResultID, &sa.QuestionID, &sa.SelectedOptionID, &sa.AssessmentID, &sa.UserID); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListResultsByAssessment(ctx context.Context, assessmentID string) ([]ResultSummary, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, assessmentID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("assessment %s", assessmentID)
		}
		return nil, err
	}

	var maxScore int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE assessment_id=$1`, assessmentID).Scan(&maxScore); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, COALESCE(u.display_name, ''), r.score, r.attempt_date
		 FROM results r LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.assessment_id=$1
		 ORDER BY r.attempt_date DESC, r.id DESC`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ResultSummary{}
	for rows.Next() {
		sm := ResultSummary{MaxScore: maxScore}
		if err := rows.Scan(&sm.ResultID, &sm.UserID, &sm.UserName, &sm.Score, &sm.AttemptDate); err != nil {
			return nil, err
		}
		if maxScore > 0 {
			sm.Percentage = float64(sm.Score) / float64(maxScore) * 100
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetDetailedResult(ctx context.Context, resultID string) (DetailedResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assessment_id, user_id, score, attempt_date FROM results WHERE id=$1`, resultID)
	var r Result
	if err := row.Scan(&r.ID, &r.AssessmentID, &r.UserID, &r.Score, &r.AttemptDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DetailedResult{}, notFoundf("result %s", resultID)
		}
		return DetailedResult{}, err
	}
	answers, err := s.loadAnswers(ctx, r.ID)
	if err != nil {
		return DetailedResult{}, err
	}

	bank, err := s.loadAssessment(ctx, s.db, r.AssessmentID)
	if err != nil {
		return DetailedResult{}, err
	}

	var userName string
	if err := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM users WHERE id=$1`, r.UserID).Scan(&userName); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DetailedResult{}, err
	}

	return buildDetailedResult(r, answers, bank, userName), nil
}

// buildDetailedResult joins stored answers against the current question
// bank. The bank may have been edited since the attempt: answers whose
// question or option no longer exists surface as null fields, never errors.
func buildDetailedResult(r Result, answers []StudentAnswer, bank Assessment, userName string) DetailedResult {
	byQuestion := make(map[string]string, len(answers))
	for _, sa := range answers {
		byQuestion[sa.QuestionID] = sa.SelectedOptionID
	}

	out := DetailedResult{
		ResultID:        r.ID,
		UserID:          r.UserID,
		UserName:        userName,
		AssessmentTitle: bank.Title,
		Score:           r.Score,
		MaxScore:        bank.MaxScore(),
		AttemptDate:     r.AttemptDate,
		Questions:       make([]QuestionReview, 0, len(bank.Questions)),
	}
	for _, q := range bank.Questions {
		rev := QuestionReview{QuestionID: q.ID, QuestionText: q.Text}
		selectedID := byQuestion[q.ID]
		for _, o := range q.Options {
			rev.AllOptions = append(rev.AllOptions, OptionView{
				OptionID:   o.ID,
				Text:       o.Text,
				IsCorrect:  o.IsCorrect,
				IsSelected: o.ID == selectedID,
			})
			if o.IsCorrect && rev.CorrectOption == nil {
				rev.CorrectOption = &CorrectOption{OptionID: o.ID, Text: o.Text}
			}
			if o.ID == selectedID {
				rev.StudentAnswer = &SelectedAnswer{SelectedOptionID: o.ID, SelectedOptionText: o.Text}
				rev.IsCorrect = o.IsCorrect
			}
		}
		out.Questions = append(out.Questions, rev)
	}
	return out
}

// --- Cascade delete ---

// DeleteAssessment removes an assessment and every entity that transitively
// references it, deepest dependents first, in one transaction. Any phase
// failing rolls back all of them.
func (s *SQLStore) DeleteAssessment(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = notFoundf("assessment %s", id)
		}
		return err
	}

	// Phase 1: collect the option ids under this assessment's questions.
	optionIDs, err := collectOptionIDs(ctx, tx, id)
	if err != nil {
		return err
	}

	// Phase 2: student answers selecting any of those options. Scoped by
	// option membership rather than assessment id so rows orphaned by
	// earlier partial failures are caught too.
	if err = deleteAnswersByOptions(ctx, tx, optionIDs); err != nil {
		return err
	}

	// Phase 3: student answers attached to this assessment's results
	// (covers answers whose option was already removed).
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM student_answers WHERE result_id IN (SELECT id FROM results WHERE assessment_id=$1)`, id); err != nil {
		return err
	}

	// Phase 4: results.
	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE assessment_id=$1`, id); err != nil {
		return err
	}

	// Phase 5: options.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE assessment_id=$1)`, id); err != nil {
		return err
	}

	// Phase 6: questions.
	if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE assessment_id=$1`, id); err != nil {
		return err
	}

	// Phase 7: the assessment itself.
	if _, err = tx.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]any{"assessment_id": id})
	return syncx.AppendTx(ctx, tx, syncx.Event{
		Type:     "AssessmentDeleted",
		Key:      id,
		DataJSON: string(payload),
	})
}

func collectOptionIDs(ctx context.Context, tx dbtx, assessmentID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT o.id FROM options o JOIN questions q ON q.id=o.question_id WHERE q.assessment_id=$1`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deleteAnswersByOptions deletes in chunks to stay under sqlite's
// per-statement parameter limit.
func deleteAnswersByOptions(ctx context.Context, tx dbtx, optionIDs []string) error {
	const chunk = 400
	for start := 0; start < len(optionIDs); start += chunk {
		end := start + chunk
		if end > len(optionIDs) {
			end = len(optionIDs)
		}
		ids := optionIDs[start:end]
		ph := make([]string, len(ids))
		args := make([]any, len(ids))
		for i, id := range ids {
			ph[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := `DELETE FROM student_answers WHERE selected_option_id IN (` + strings.Join(ph, ",") + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}
