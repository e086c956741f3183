package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etests/etests-backend/internal/grading"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/redaction"
	"github.com/etests/etests-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AttemptService drives the attempt lifecycle: start or resume, draft
// answers, submission, expiry and result disclosure.
//
// Expiry is evaluated lazily on every call. An expired, unsubmitted attempt
// is force-submitted with submitted_at equal to its deadline, grading the
// drafts saved before it.
type AttemptService struct {
	catalog  ExamCatalog
	attempts AttemptStore
	drafts   DraftStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(catalog ExamCatalog, attempts AttemptStore, drafts DraftStore, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		catalog:  catalog,
		attempts: attempts,
		drafts:   drafts,
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      time.Now,
	}
}

func (s *AttemptService) getExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.catalog.GetTree(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// Start creates the student's attempt or resumes the open one.
func (s *AttemptService) Start(ctx context.Context, studentID, examID uuid.UUID) (*model.AttemptStartPayload, error) {
	now := s.now()

	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsAvailableAt(now) {
		return nil, ErrNotFound
	}

	attempt, created, err := s.getOrCreate(ctx, studentID, examID, now)
	if err != nil {
		return nil, err
	}

	switch {
	case attempt.IsSubmitted && attempt.ForceSubmitted:
		return nil, ErrExpiredAttempt
	case attempt.IsSubmitted:
		return nil, ErrAlreadyCompleted
	case model.IsExpired(attempt.StartedAt, exam.TimeLimitMinutes, now):
		if _, err := s.forceClose(ctx, attempt, exam); err != nil {
			return nil, err
		}
		return nil, ErrExpiredAttempt
	}

	event := s.log.Info()
	if created {
		event.Str("event", "created")
	} else {
		event.Str("event", "resumed")
	}
	event.Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String()).
		Msg("Attempt started")

	return &model.AttemptStartPayload{
		AttemptID:  attempt.ID,
		Exam:       redaction.ForStudent(exam),
		ServerTime: now,
		ExpiresAt:  model.ExpiresAt(attempt.StartedAt, exam.TimeLimitMinutes),
	}, nil
}

// getOrCreate relies on the (student_id, exam_id) unique constraint: a lost
// insert race refetches the winner's row.
func (s *AttemptService) getOrCreate(ctx context.Context, studentID, examID uuid.UUID, now time.Time) (*model.Attempt, bool, error) {
	attempt, err := s.attempts.GetByStudentAndExam(ctx, studentID, examID)
	if err == nil {
		return attempt, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get attempt: %w", err)
	}

	attempt = &model.Attempt{StudentID: studentID, ExamID: examID, StartedAt: now}
	err = s.attempts.Create(ctx, attempt)
	if err == nil {
		return attempt, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	attempt, err = s.attempts.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, false, fmt.Errorf("refetch attempt: %w", err)
	}
	return attempt, false, nil
}

// owned loads an attempt of the student together with its exam. Attempts of
// other students are reported as not found.
func (s *AttemptService) owned(ctx context.Context, studentID, attemptID uuid.UUID) (*model.Attempt, *model.Exam, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, nil, ErrNotFound
	}
	exam, err := s.getExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, exam, nil
}

// openForWrite rejects closed attempts, force-submitting expired ones.
func (s *AttemptService) openForWrite(ctx context.Context, attempt *model.Attempt, exam *model.Exam, now time.Time) error {
	if attempt.IsSubmitted {
		if attempt.ForceSubmitted {
			return ErrExpiredAttempt
		}
		return ErrAlreadySubmitted
	}
	if model.IsExpired(attempt.StartedAt, exam.TimeLimitMinutes, now) {
		if _, err := s.forceClose(ctx, attempt, exam); err != nil {
			return err
		}
		return ErrExpiredAttempt
	}
	return nil
}

// CheckLive verifies the attempt is the student's and still open, and
// returns its deadline.
func (s *AttemptService) CheckLive(ctx context.Context, studentID, attemptID uuid.UUID) (time.Time, error) {
	attempt, exam, err := s.owned(ctx, studentID, attemptID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.openForWrite(ctx, attempt, exam, s.now()); err != nil {
		return time.Time{}, err
	}
	return model.ExpiresAt(attempt.StartedAt, exam.TimeLimitMinutes), nil
}

// SaveAnswer records a draft selection on a live attempt.
func (s *AttemptService) SaveAnswer(ctx context.Context, studentID, attemptID, questionID, optionID uuid.UUID) error {
	attempt, exam, err := s.owned(ctx, studentID, attemptID)
	if err != nil {
		return err
	}
	if err := s.openForWrite(ctx, attempt, exam, s.now()); err != nil {
		return err
	}

	valid := false
	for i := range exam.Questions {
		if exam.Questions[i].ID == questionID {
			valid = exam.Questions[i].HasOption(optionID)
			break
		}
	}
	if !valid {
		return ErrInvalidAnswer
	}

	deadline := model.ExpiresAt(attempt.StartedAt, exam.TimeLimitMinutes)
	if err := s.drafts.Save(ctx, attemptID, questionID, optionID, deadline); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Submit grades the given answers and closes the attempt. A submission after
// the deadline is not scored: the attempt is force-submitted at its deadline
// with the drafts saved before it, and that result is returned.
func (s *AttemptService) Submit(ctx context.Context, studentID, attemptID uuid.UUID, answers []model.AnswerInput) (*model.AttemptResult, error) {
	attempt, exam, err := s.owned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, attempt, exam, answers)
}

// SubmitDrafts submits the attempt using its saved drafts as the answers.
func (s *AttemptService) SubmitDrafts(ctx context.Context, studentID, attemptID uuid.UUID) (*model.AttemptResult, error) {
	attempt, exam, err := s.owned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	drafts, err := s.drafts.Load(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	return s.submit(ctx, attempt, exam, draftAnswers(exam, drafts))
}

func (s *AttemptService) submit(ctx context.Context, attempt *model.Attempt, exam *model.Exam, answers []model.AnswerInput) (*model.AttemptResult, error) {
	now := s.now()

	if attempt.IsSubmitted {
		if attempt.ForceSubmitted {
			return nil, ErrExpiredAttempt
		}
		return nil, ErrAlreadySubmitted
	}

	if model.IsExpired(attempt.StartedAt, exam.TimeLimitMinutes, now) {
		closed, err := s.forceClose(ctx, attempt, exam)
		if err != nil {
			return nil, err
		}
		return s.result(ctx, closed, exam)
	}

	graded := grading.Grade(exam, answers)
	completion := newCompletion(attempt.ID, graded, now, false)
	if err := s.attempts.Complete(ctx, completion); err != nil {
		if errors.Is(err, repository.ErrAttemptClosed) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	s.clearDrafts(ctx, attempt.ID)
	applyCompletion(attempt, completion)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Str("student_id", attempt.StudentID.String()).
		Int("score", completion.Score).
		Int("max_score", completion.MaxScore).
		Msg("Attempt submitted")

	return s.result(ctx, attempt, exam)
}

// forceClose submits an expired attempt at its deadline, grading its drafts.
// If a concurrent call already closed it, the stored attempt is returned.
func (s *AttemptService) forceClose(ctx context.Context, attempt *model.Attempt, exam *model.Exam) (*model.Attempt, error) {
	drafts, err := s.drafts.Load(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}

	graded := grading.Grade(exam, draftAnswers(exam, drafts))
	deadline := model.ExpiresAt(attempt.StartedAt, exam.TimeLimitMinutes)
	completion := newCompletion(attempt.ID, graded, deadline, true)

	if err := s.attempts.Complete(ctx, completion); err != nil {
		if !errors.Is(err, repository.ErrAttemptClosed) {
			return nil, fmt.Errorf("force submit: %w", err)
		}
		stored, err := s.attempts.GetByID(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("refetch attempt: %w", err)
		}
		return stored, nil
	}
	s.clearDrafts(ctx, attempt.ID)
	applyCompletion(attempt, completion)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Str("student_id", attempt.StudentID.String()).
		Int("score", completion.Score).
		Time("submitted_at", deadline).
		Msg("Attempt force-submitted")
	return attempt, nil
}

func (s *AttemptService) clearDrafts(ctx context.Context, attemptID uuid.UUID) {
	if err := s.drafts.Clear(ctx, attemptID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear drafts")
	}
}

// ListAttempts returns the student's attempts, finalizing expired ones.
func (s *AttemptService) ListAttempts(ctx context.Context, studentID uuid.UUID) ([]model.AttemptSummary, error) {
	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	now := s.now()
	summaries := make([]model.AttemptSummary, 0, len(attempts))
	for i := range attempts {
		attempt := &attempts[i]
		exam, err := s.getExam(ctx, attempt.ExamID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !attempt.IsSubmitted && model.IsExpired(attempt.StartedAt, exam.TimeLimitMinutes, now) {
			if attempt, err = s.forceClose(ctx, attempt, exam); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, summarize(attempt, exam))
	}
	return summaries, nil
}

// GetResult returns the gated result of a submitted attempt.
func (s *AttemptService) GetResult(ctx context.Context, studentID, attemptID uuid.UUID) (*model.AttemptResult, error) {
	attempt, exam, err := s.owned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsSubmitted {
		if !model.IsExpired(attempt.StartedAt, exam.TimeLimitMinutes, s.now()) {
			return nil, ErrNotSubmitted
		}
		if attempt, err = s.forceClose(ctx, attempt, exam); err != nil {
			return nil, err
		}
	}
	return s.result(ctx, attempt, exam)
}

// SweepExpired force-submits attempts abandoned past their deadline and
// returns how many were closed.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	attempts, err := s.attempts.ListOpenExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired attempts: %w", err)
	}

	closed := 0
	for i := range attempts {
		attempt := &attempts[i]
		exam, err := s.getExam(ctx, attempt.ExamID)
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Sweep: exam lookup failed")
			continue
		}
		if _, err := s.forceClose(ctx, attempt, exam); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Sweep: force submit failed")
			continue
		}
		closed++
	}
	return closed, nil
}

func draftAnswers(exam *model.Exam, drafts map[uuid.UUID]uuid.UUID) []model.AnswerInput {
	answers := make([]model.AnswerInput, 0, len(drafts))
	for _, q := range exam.Questions {
		if optionID, ok := drafts[q.ID]; ok {
			answers = append(answers, model.AnswerInput{QuestionID: q.ID, SelectedOptionID: &optionID})
		}
	}
	return answers
}

// newCompletion stores a response for every question the submission
// addressed, unanswered ones with an empty selection.
func newCompletion(attemptID uuid.UUID, graded grading.Result, at time.Time, forced bool) *model.Completion {
	c := &model.Completion{
		AttemptID:      attemptID,
		SubmittedAt:    at,
		Score:          graded.Score,
		MaxScore:       graded.MaxScore,
		ForceSubmitted: forced,
		Responses:      []model.Response{},
	}
	for _, qr := range graded.Questions {
		if !qr.Submitted {
			continue
		}
		c.Responses = append(c.Responses, model.Response{
			ID:               uuid.New(),
			AttemptID:        attemptID,
			QuestionID:       qr.QuestionID,
			SelectedOptionID: qr.SelectedOptionID,
			IsCorrect:        qr.IsCorrect,
			AnsweredAt:       at,
		})
	}
	return c
}

func applyCompletion(a *model.Attempt, c *model.Completion) {
	submittedAt := c.SubmittedAt
	score, maxScore := c.Score, c.MaxScore
	a.SubmittedAt = &submittedAt
	a.Score = &score
	a.MaxScore = &maxScore
	a.IsSubmitted = true
	a.ForceSubmitted = c.ForceSubmitted
}
