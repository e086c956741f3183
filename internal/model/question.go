package model

import (
	"time"

	"github.com/google/uuid"
)

// Question belongs to one exam and owns an ordered list of options, exactly
// one of which is correct.
type Question struct {
	ID        uuid.UUID `json:"id"`
	ExamID    uuid.UUID `json:"exam_id"`
	Content   string    `json:"content"`
	Points    int       `json:"points"`
	Order     int       `json:"order"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

// Option is a single answer choice. IsCorrect is authoritative.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Content    string    `json:"content"`
	IsCorrect  bool      `json:"is_correct"`
	Order      int       `json:"order"`
}

// CorrectOption returns the option flagged correct, if any.
func (q *Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// HasOption reports whether optionID belongs to this question.
func (q *Question) HasOption(optionID uuid.UUID) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Content string        `json:"content" binding:"required,min=1,max=5000"`
	Points  int           `json:"points" binding:"omitempty,min=1,max=1000"`
	Options []OptionInput `json:"options" binding:"required,min=2,max=10,dive"`
}

// OptionInput is one option inside AddQuestionRequest.
type OptionInput struct {
	Content   string `json:"content" binding:"required,min=1,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

// CorrectCount returns how many options are flagged correct.
func (r *AddQuestionRequest) CorrectCount() int {
	n := 0
	for _, o := range r.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}
