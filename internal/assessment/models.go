package assessment

// Option is one selectable choice of a Question. IsCorrect is only
// populated on the authoritative question bank, never on student views.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID           string   `json:"id"`
	AssessmentID string   `json:"assessment_id,omitempty"`
	Text         string   `json:"text"`
	Options      []Option `json:"options"`
}

type Assessment struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt int64      `json:"created_at,omitempty"`
	Questions []Question `json:"questions"`
}

// MaxScore is one point per question.
func (a Assessment) MaxScore() int { return len(a.Questions) }

type Summary struct {
	ID            string `json:"id"`
	CourseID      string `json:"course_id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at"`
}

// StudentAnswer is one selected option for one question within a Result.
// AssessmentID and UserID are denormalized copies for query convenience.
type StudentAnswer struct {
	ID               string `json:"id"`
	ResultID         string `json:"result_id"`
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
	AssessmentID     string `json:"assessment_id"`
	UserID           string `json:"user_id"`
}

// Result is one graded submission for one user against one assessment.
type Result struct {
	ID           string          `json:"id"`
	AssessmentID string          `json:"assessment_id"`
	UserID       string          `json:"user_id"`
	Score        int             `json:"score"`
	AttemptDate  int64           `json:"attempt_date"`
	Answers      []StudentAnswer `json:"answers,omitempty"`
}

// Submission is the wire contract a client posts when an exam session ends.
// Unanswered questions are simply absent from Answers.
type Submission struct {
	AssessmentID string             `json:"assessment_id"`
	UserID       string             `json:"user_id"`
	Answers      []SubmissionAnswer `json:"answers"`
}

type SubmissionAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
}

// ResultSummary is one row of a teacher's per-assessment results listing.
// Percentage is computed against the assessment's current question count.
type ResultSummary struct {
	ResultID    string  `json:"result_id"`
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name,omitempty"`
	Score       int     `json:"score"`
	MaxScore    int     `json:"max_score"`
	Percentage  float64 `json:"percentage"`
	AttemptDate int64   `json:"attempt_date"`
}

// OptionView is one option of a reviewed question, flagged with the
// student's selection.
type OptionView struct {
	OptionID   string `json:"option_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	IsSelected bool   `json:"is_selected"`
}

type SelectedAnswer struct {
	SelectedOptionID   string `json:"selected_option_id"`
	SelectedOptionText string `json:"selected_option_text"`
}

type CorrectOption struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
}

// QuestionReview covers one question of the bank: the student's selection
// (nil if unanswered or the option no longer exists), the correct option
// (nil if none is marked), and the derived correctness.
type QuestionReview struct {
	QuestionID    string          `json:"question_id"`
	QuestionText  string          `json:"question_text"`
	StudentAnswer *SelectedAnswer `json:"student_answer"`
	CorrectOption *CorrectOption  `json:"correct_option"`
	IsCorrect     bool            `json:"is_correct"`
	AllOptions    []OptionView    `json:"all_options"`
}

// DetailedResult is the graded result payload served to owners and teachers.
type DetailedResult struct {
	ResultID        string           `json:"result_id"`
	UserID          string           `json:"user_id"`
	UserName        string           `json:"user_name"`
	AssessmentTitle string           `json:"assessment_title"`
	Score           int              `json:"score"`
	MaxScore        int              `json:"max_score"`
	AttemptDate     int64            `json:"attempt_date"`
	Questions       []QuestionReview `json:"questions"`
}
