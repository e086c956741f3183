package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the authoritative exam aggregate, including correctness flags on
// its options. It must never be serialized to a student.
type Exam struct {
	ID                 uuid.UUID  `json:"id"`
	TeacherID          uuid.UUID  `json:"teacher_id"`
	Title              string     `json:"title"`
	Description        *string    `json:"description"`
	TimeLimitMinutes   int        `json:"time_limit_minutes"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	RandomizeOptions   bool       `json:"randomize_options"`
	IsPublished        bool       `json:"is_published"`
	ResultsPublished   bool       `json:"results_published"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Questions          []Question `json:"questions"`
}

// IsAvailableAt reports whether students may interact with the exam at now:
// it is published and now lies within [StartDate, EndDate], a missing bound
// being unbounded.
func (e *Exam) IsAvailableAt(now time.Time) bool {
	if !e.IsPublished {
		return false
	}
	if e.StartDate != nil && now.Before(*e.StartDate) {
		return false
	}
	if e.EndDate != nil && now.After(*e.EndDate) {
		return false
	}
	return true
}

// MaxScore is the sum of all question point values.
func (e *Exam) MaxScore() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// ExamSummary is the brief listing shape shared by teacher and student lists.
type ExamSummary struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	IsPublished      bool       `json:"is_published"`
	QuestionCount    int        `json:"question_count"`
}

// CreateExamRequest is the payload for creating an exam.
type CreateExamRequest struct {
	Title              string     `json:"title" binding:"required,min=1,max=255"`
	Description        *string    `json:"description" binding:"omitempty,max=5000"`
	TimeLimitMinutes   int        `json:"time_limit_minutes" binding:"omitempty,min=1,max=1440"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	RandomizeOptions   bool       `json:"randomize_options"`
}

// UpdateExamRequest patches an exam. Absent fields are left unchanged; the
// nullable ones are cleared by an explicit null.
type UpdateExamRequest struct {
	Title              *string             `json:"title" binding:"omitempty,min=1,max=255"`
	Description        Nullable[string]    `json:"description" binding:"omitempty,max=5000"`
	TimeLimitMinutes   *int                `json:"time_limit_minutes" binding:"omitempty,min=1,max=1440"`
	StartDate          Nullable[time.Time] `json:"start_date"`
	EndDate            Nullable[time.Time] `json:"end_date"`
	RandomizeQuestions *bool               `json:"randomize_questions"`
	RandomizeOptions   *bool               `json:"randomize_options"`
	IsPublished        *bool               `json:"is_published"`
	ResultsPublished   *bool               `json:"results_published"`
}
