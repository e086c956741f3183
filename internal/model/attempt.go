package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState is derived on read; only Submitted is stored.
type AttemptState string

const (
	AttemptStateLive      AttemptState = "LIVE"
	AttemptStateExpired   AttemptState = "EXPIRED"
	AttemptStateSubmitted AttemptState = "SUBMITTED"
)

// Attempt is one student's single timed engagement with one exam.
type Attempt struct {
	ID             uuid.UUID  `json:"id"`
	StudentID      uuid.UUID  `json:"student_id"`
	ExamID         uuid.UUID  `json:"exam_id"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Score          *int       `json:"score"`
	MaxScore       *int       `json:"max_score"`
	IsSubmitted    bool       `json:"is_submitted"`
	ForceSubmitted bool       `json:"force_submitted"`
}

// ExpiresAt is the attempt deadline: started_at + time limit.
func ExpiresAt(startedAt time.Time, timeLimitMinutes int) time.Time {
	return startedAt.Add(time.Duration(timeLimitMinutes) * time.Minute)
}

// IsExpired reports whether now is strictly past the deadline.
func IsExpired(startedAt time.Time, timeLimitMinutes int, now time.Time) bool {
	return now.After(ExpiresAt(startedAt, timeLimitMinutes))
}

// State classifies the attempt at now.
func (a *Attempt) State(timeLimitMinutes int, now time.Time) AttemptState {
	switch {
	case a.IsSubmitted:
		return AttemptStateSubmitted
	case IsExpired(a.StartedAt, timeLimitMinutes, now):
		return AttemptStateExpired
	default:
		return AttemptStateLive
	}
}

// Response is a stored, graded answer. IsCorrect is fixed at submission.
type Response struct {
	ID               uuid.UUID  `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id"`
	IsCorrect        bool       `json:"is_correct"`
	AnsweredAt       time.Time  `json:"answered_at"`
}

// Completion is everything written by the one-time submission transaction.
type Completion struct {
	AttemptID      uuid.UUID
	SubmittedAt    time.Time
	Score          int
	MaxScore       int
	ForceSubmitted bool
	Responses      []Response
}

// ─── Requests ───────────────────────────────────────────────────────────

// AnswerInput is one (question, selected option) pair. A nil selection means
// the question was left unanswered.
type AnswerInput struct {
	QuestionID       uuid.UUID  `json:"question_id" binding:"required"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id"`
}

// SubmitAttemptRequest is the full exam submission.
type SubmitAttemptRequest struct {
	Responses []AnswerInput `json:"responses" binding:"dive"`
}

// SaveAnswerRequest autosaves a draft selection for one question.
type SaveAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionID   uuid.UUID `json:"option_id" binding:"required"`
}

// ─── Payloads ───────────────────────────────────────────────────────────

// AttemptStartPayload is returned when an attempt is created or resumed.
type AttemptStartPayload struct {
	AttemptID  uuid.UUID   `json:"attempt_id"`
	Exam       StudentExam `json:"exam"`
	ServerTime time.Time   `json:"server_time"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// ResponseResult is the per-question breakdown, only sent once results are
// published.
type ResponseResult struct {
	QuestionID       uuid.UUID  `json:"question_id"`
	QuestionContent  string     `json:"question_content"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id"`
	CorrectOptionID  *uuid.UUID `json:"correct_option_id"`
	IsCorrect        bool       `json:"is_correct"`
	PointsEarned     int        `json:"points_earned"`
	MaxPoints        int        `json:"max_points"`
}

// AttemptResult is the graded view of a submitted attempt.
type AttemptResult struct {
	AttemptID        uuid.UUID        `json:"attempt_id"`
	ExamTitle        string           `json:"exam_title"`
	Score            int              `json:"score"`
	MaxScore         int              `json:"max_score"`
	Percentage       float64          `json:"percentage"`
	StartedAt        time.Time        `json:"started_at"`
	SubmittedAt      *time.Time       `json:"submitted_at"`
	ForceSubmitted   bool             `json:"force_submitted"`
	ResultsPublished bool             `json:"results_published"`
	Responses        []ResponseResult `json:"responses"`
}

// AttemptSummary is one row of the student's attempt list. Score fields are
// nil until results are published.
type AttemptSummary struct {
	ID          uuid.UUID  `json:"id"`
	ExamID      uuid.UUID  `json:"exam_id"`
	ExamTitle   string     `json:"exam_title"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	IsSubmitted bool       `json:"is_submitted"`
	Score       *int       `json:"score"`
	MaxScore    *int       `json:"max_score"`
}
