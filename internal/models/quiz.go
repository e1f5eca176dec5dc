package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OptionLabel identifies one of the four fixed answer slots of a question.
type OptionLabel string

const (
	OptionA OptionLabel = "a"
	OptionB OptionLabel = "b"
	OptionC OptionLabel = "c"
	OptionD OptionLabel = "d"
)

var OptionLabels = []OptionLabel{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLabel normalises user input; ok is false for anything outside a-d.
func ParseOptionLabel(value string) (OptionLabel, bool) {
	label := OptionLabel(strings.ToLower(strings.TrimSpace(value)))
	switch label {
	case OptionA, OptionB, OptionC, OptionD:
		return label, true
	default:
		return "", false
	}
}

type Quiz struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LectureID   uint   `gorm:"not null;index" json:"lecture_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	// TimeLimit is in minutes.
	TimeLimit        int  `gorm:"not null;default:15" json:"time_limit"`
	PassingScore     int  `gorm:"not null;default:60" json:"passing_score"`
	ShuffleQuestions bool `gorm:"not null" json:"shuffle_questions"`
	ShowAnswers      bool `gorm:"not null" json:"show_answers"`
	MaxAttempts      int  `gorm:"not null;default:1" json:"max_attempts"`
	IsActive         bool `gorm:"not null" json:"is_active"`

	Questions []Question `gorm:"constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}

type Question struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuizID uint   `gorm:"not null;index" json:"quiz_id"`
	Text   string `gorm:"type:text;not null" json:"text"`
	Image  string `json:"image,omitempty"`

	OptionA string `gorm:"size:500" json:"option_a"`
	OptionB string `gorm:"size:500" json:"option_b"`
	OptionC string `gorm:"size:500" json:"option_c"`
	OptionD string `gorm:"size:500" json:"option_d"`

	CorrectAnswer OptionLabel `gorm:"type:varchar(1);not null" json:"correct_answer"`
	Explanation   string      `gorm:"type:text" json:"explanation,omitempty"`
	Points        int         `gorm:"not null;default:1" json:"points"`
	Order         int         `gorm:"not null;default:0" json:"order"`
}

// Options returns the fixed label to text mapping of the question.
func (q Question) Options() map[OptionLabel]string {
	return map[OptionLabel]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}

// OptionText returns the text behind a label, or "" for unknown labels.
func (q Question) OptionText(label OptionLabel) string {
	return q.Options()[label]
}

func (q Question) CorrectOptionText() string {
	return q.OptionText(q.CorrectAnswer)
}

// AnswerRecord is the stored grading outcome of a single question.
type AnswerRecord struct {
	Answer    string      `json:"answer"`
	Correct   OptionLabel `json:"correct"`
	IsCorrect bool        `json:"is_correct"`
}

// AnswerSheet maps a question id (decimal string) to its grading record.
type AnswerSheet map[string]AnswerRecord

// StudentResult is one graded attempt. Rows are written once and never updated.
type StudentResult struct {
	ID uint `gorm:"primarykey" json:"id"`

	StudentID     uint `gorm:"not null;uniqueIndex:idx_results_attempt,priority:1;index" json:"student_id"`
	QuizID        uint `gorm:"not null;uniqueIndex:idx_results_attempt,priority:2;index" json:"quiz_id"`
	AttemptNumber int  `gorm:"not null;uniqueIndex:idx_results_attempt,priority:3" json:"attempt_number"`

	Score          int     `gorm:"not null;default:0" json:"score"`
	TotalQuestions int     `gorm:"not null;default:0" json:"total_questions"`
	CorrectAnswers int     `gorm:"not null;default:0" json:"correct_answers"`
	Percentage     float64 `gorm:"not null;default:0" json:"percentage"`
	Passed         bool    `gorm:"not null;default:false" json:"passed"`

	AnswersData datatypes.JSONType[AnswerSheet] `json:"-"`

	// TimeTaken is in seconds.
	TimeTaken   int        `gorm:"not null;default:0" json:"time_taken"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Quiz Quiz `gorm:"constraint:OnDelete:CASCADE;" json:"quiz,omitempty"`
}

// Answers returns the stored per-question records.
func (r StudentResult) Answers() AnswerSheet {
	sheet := r.AnswersData.Data()
	if sheet == nil {
		return AnswerSheet{}
	}
	return sheet
}

// QuestionView is what a student sees while taking a quiz; it never carries the answer key.
type QuestionView struct {
	ID      uint                   `json:"id"`
	Text    string                 `json:"text"`
	Image   string                 `json:"image,omitempty"`
	Options map[OptionLabel]string `json:"options"`
	Points  int                    `json:"points"`
}

func NewQuestionView(q Question) QuestionView {
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Image:   q.Image,
		Options: q.Options(),
		Points:  q.Points,
	}
}

// AnswerReview is one row of the post-quiz breakdown.
type AnswerReview struct {
	QuestionID        uint                   `json:"question_id"`
	Text              string                 `json:"text"`
	Options           map[OptionLabel]string `json:"options"`
	StudentAnswer     string                 `json:"student_answer"`
	CorrectAnswer     OptionLabel            `json:"correct_answer"`
	CorrectOptionText string                 `json:"correct_option_text"`
	IsCorrect         bool                   `json:"is_correct"`
	Explanation       string                 `json:"explanation,omitempty"`
}

type QuizIntro struct {
	Quiz          Quiz `json:"quiz"`
	QuestionCount int  `json:"questions_count"`
	TotalPoints   int  `json:"total_points"`
	AttemptsUsed  int  `json:"attempts_used"`
	CanTake       bool `json:"can_take"`
}

type QuizAttempt struct {
	Quiz          Quiz           `json:"quiz"`
	AttemptNumber int            `json:"attempt_number"`
	Questions     []QuestionView `json:"questions"`
	StartedAt     time.Time      `json:"started_at"`
	Deadline      time.Time      `json:"deadline"`
}

type QuizResultView struct {
	Result  StudentResult  `json:"result"`
	Answers []AnswerReview `json:"answers,omitempty"`
}
