package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultTimeLimitMinutes = 60
	defaultQuestionPoints   = 1
)

// ExamService handles exam authoring and the student catalogue.
type ExamService struct {
	exams     ExamStore
	questions QuestionStore
	cache     CacheInvalidator
	log       zerolog.Logger
	now       func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, questions QuestionStore, cache CacheInvalidator, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		cache:     cache,
		log:       log.With().Str("component", "exam_service").Logger(),
		now:       time.Now,
	}
}

func validWindow(start, end *time.Time) bool {
	return start == nil || end == nil || !start.After(*end)
}

// ListByTeacher returns the teacher's own exams.
func (s *ExamService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.ExamSummary, error) {
	return s.exams.ListByTeacher(ctx, teacherID)
}

// ListAvailable returns exams students can start right now.
func (s *ExamService) ListAvailable(ctx context.Context) ([]model.ExamSummary, error) {
	return s.exams.ListAvailable(ctx, s.now())
}

// Create adds a new, unpublished exam owned by the teacher.
func (s *ExamService) Create(ctx context.Context, teacherID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	if !validWindow(req.StartDate, req.EndDate) {
		return nil, ErrInvalidWindow
	}

	limit := req.TimeLimitMinutes
	if limit == 0 {
		limit = defaultTimeLimitMinutes
	}

	exam := &model.Exam{
		TeacherID:          teacherID,
		Title:              req.Title,
		Description:        req.Description,
		TimeLimitMinutes:   limit,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		RandomizeQuestions: req.RandomizeQuestions,
		RandomizeOptions:   req.RandomizeOptions,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	exam.Questions = []model.Question{}

	s.log.Info().Str("exam_id", exam.ID.String()).Str("teacher_id", teacherID.String()).Msg("Exam created")
	return exam, nil
}

// GetOwned returns the full exam tree. Exams of other teachers are reported
// as not found.
func (s *ExamService) GetOwned(ctx context.Context, teacherID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetTree(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotFound
	}
	return exam, nil
}

// Update applies the fields present in req.
func (s *ExamService) Update(ctx context.Context, teacherID, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.GetOwned(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description.Set {
		exam.Description = req.Description.Value
	}
	if req.TimeLimitMinutes != nil {
		exam.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.StartDate.Set {
		exam.StartDate = req.StartDate.Value
	}
	if req.EndDate.Set {
		exam.EndDate = req.EndDate.Value
	}
	if req.RandomizeQuestions != nil {
		exam.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.RandomizeOptions != nil {
		exam.RandomizeOptions = *req.RandomizeOptions
	}
	if req.IsPublished != nil {
		exam.IsPublished = *req.IsPublished
	}
	if req.ResultsPublished != nil {
		exam.ResultsPublished = *req.ResultsPublished
	}
	if !validWindow(exam.StartDate, exam.EndDate) {
		return nil, ErrInvalidWindow
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	s.cache.Invalidate(ctx, examID)
	return exam, nil
}

// Delete removes an exam and everything under it.
func (s *ExamService) Delete(ctx context.Context, teacherID, examID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, teacherID, examID); err != nil {
		return err
	}
	if err := s.exams.Delete(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	s.cache.Invalidate(ctx, examID)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam deleted")
	return nil
}

// AddQuestion appends a question. Exactly one option must be correct.
func (s *ExamService) AddQuestion(ctx context.Context, teacherID, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if req.CorrectCount() != 1 || len(req.Options) < 2 {
		return nil, ErrInvalidSubmission
	}
	if _, err := s.GetOwned(ctx, teacherID, examID); err != nil {
		return nil, err
	}

	points := req.Points
	if points == 0 {
		points = defaultQuestionPoints
	}

	q := &model.Question{
		ExamID:  examID,
		Content: req.Content,
		Points:  points,
		Options: make([]model.Option, len(req.Options)),
	}
	for i, o := range req.Options {
		q.Options[i] = model.Option{Content: o.Content, IsCorrect: o.IsCorrect, Order: i}
	}

	if err := s.questions.Create(ctx, q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.cache.Invalidate(ctx, examID)
	return q, nil
}
