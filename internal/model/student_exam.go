package model

import "github.com/google/uuid"

// StudentExam is the answer-blind view of an exam delivered during an attempt.
// None of the Student* types has a correctness field.
type StudentExam struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Description      *string           `json:"description"`
	TimeLimitMinutes int               `json:"time_limit_minutes"`
	Questions        []StudentQuestion `json:"questions"`
}

// StudentQuestion is a question without its answer key.
type StudentQuestion struct {
	ID      uuid.UUID       `json:"id"`
	Content string          `json:"content"`
	Order   int             `json:"order"`
	Points  int             `json:"points"`
	Options []StudentOption `json:"options"`
}

// StudentOption is an option without its correctness flag.
type StudentOption struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	Order   int       `json:"order"`
}
