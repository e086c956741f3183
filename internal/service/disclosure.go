package service

import (
	"context"
	"fmt"

	"github.com/etests/etests-backend/internal/grading"
	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
)

// summarize builds a list row. Score fields stay nil, not zero, until the
// exam's results are published.
func summarize(a *model.Attempt, exam *model.Exam) model.AttemptSummary {
	summary := model.AttemptSummary{
		ID:          a.ID,
		ExamID:      a.ExamID,
		ExamTitle:   exam.Title,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
		IsSubmitted: a.IsSubmitted,
	}
	if exam.ResultsPublished && a.IsSubmitted {
		summary.Score = a.Score
		summary.MaxScore = a.MaxScore
	}
	return summary
}

// result builds the result payload of a submitted attempt. Unpublished
// results get a zeroed placeholder with an empty breakdown.
func (s *AttemptService) result(ctx context.Context, a *model.Attempt, exam *model.Exam) (*model.AttemptResult, error) {
	res := &model.AttemptResult{
		AttemptID:        a.ID,
		ExamTitle:        exam.Title,
		StartedAt:        a.StartedAt,
		SubmittedAt:      a.SubmittedAt,
		ForceSubmitted:   a.ForceSubmitted,
		ResultsPublished: exam.ResultsPublished,
		Responses:        []model.ResponseResult{},
	}
	if !exam.ResultsPublished {
		return res, nil
	}

	if a.Score != nil {
		res.Score = *a.Score
	}
	if a.MaxScore != nil {
		res.MaxScore = *a.MaxScore
	}
	res.Percentage = grading.Percentage(res.Score, res.MaxScore)

	stored, err := s.attempts.ListResponses(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	byQuestion := make(map[uuid.UUID]model.Response, len(stored))
	for _, r := range stored {
		byQuestion[r.QuestionID] = r
	}

	for _, q := range exam.Questions {
		rr := model.ResponseResult{
			QuestionID:      q.ID,
			QuestionContent: q.Content,
			MaxPoints:       q.Points,
		}
		if correct, ok := q.CorrectOption(); ok {
			id := correct.ID
			rr.CorrectOptionID = &id
		}
		if r, ok := byQuestion[q.ID]; ok {
			rr.SelectedOptionID = r.SelectedOptionID
			rr.IsCorrect = r.IsCorrect
			if r.IsCorrect {
				rr.PointsEarned = q.Points
			}
		}
		res.Responses = append(res.Responses, rr)
	}
	return res, nil
}
