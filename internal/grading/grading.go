// Package grading scores a submission against the authoritative exam.
//
// Grading is a pure function of the exam definition and the submitted
// selections: the same inputs always produce the same result.
package grading

import (
	"math"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
)

// QuestionResult is the outcome for one exam question.
type QuestionResult struct {
	QuestionID       uuid.UUID
	SelectedOptionID *uuid.UUID
	CorrectOptionID  *uuid.UUID
	IsCorrect        bool
	PointsEarned     int
	MaxPoints        int
	// Submitted is true when the submission carried a usable entry for this
	// question, even if its selection was empty or did not belong to it.
	Submitted bool
}

// Result covers every question of the exam, in exam order.
type Result struct {
	Questions []QuestionResult
	Score     int
	MaxScore  int
}

// Grade scores answers against exam. Entries naming a question outside the
// exam are dropped; a selection that is not one of the question's options
// counts as unanswered. When a question appears more than once the last
// entry wins.
func Grade(exam *model.Exam, answers []model.AnswerInput) Result {
	index := make(map[uuid.UUID]int, len(exam.Questions))
	for i, q := range exam.Questions {
		index[q.ID] = i
	}

	selected := make(map[uuid.UUID]*uuid.UUID, len(answers))
	for _, a := range answers {
		i, ok := index[a.QuestionID]
		if !ok {
			continue
		}
		var choice *uuid.UUID
		if a.SelectedOptionID != nil && exam.Questions[i].HasOption(*a.SelectedOptionID) {
			id := *a.SelectedOptionID
			choice = &id
		}
		selected[a.QuestionID] = choice
	}

	res := Result{Questions: make([]QuestionResult, 0, len(exam.Questions))}
	for _, q := range exam.Questions {
		qr := QuestionResult{
			QuestionID: q.ID,
			MaxPoints:  q.Points,
		}
		if correct, ok := q.CorrectOption(); ok {
			id := correct.ID
			qr.CorrectOptionID = &id
		}
		if choice, ok := selected[q.ID]; ok {
			qr.Submitted = true
			qr.SelectedOptionID = choice
		}
		if qr.SelectedOptionID != nil && qr.CorrectOptionID != nil && *qr.SelectedOptionID == *qr.CorrectOptionID {
			qr.IsCorrect = true
			qr.PointsEarned = q.Points
		}

		res.Score += qr.PointsEarned
		res.MaxScore += q.Points
		res.Questions = append(res.Questions, qr)
	}
	return res
}

// Percentage returns score/max*100 rounded to two decimals, 0 when max is 0.
func Percentage(score, max int) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(max)*100*100) / 100
}
