package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles attempt and response data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `a.id, a.student_id, a.exam_id, a.started_at, a.submitted_at,
	a.score, a.max_score, a.is_submitted, a.force_submitted`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.StartedAt, &a.SubmittedAt,
		&a.Score, &a.MaxScore, &a.IsSubmitted, &a.ForceSubmitted)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func collectAttempts(rows pgx.Rows) ([]model.Attempt, error) {
	defer rows.Close()
	attempts := []model.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Create inserts a new attempt. Returns pgx.ErrNoRows when the student
// already has an attempt for the exam; the caller refetches it.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (student_id, exam_id, started_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING id`,
		a.StudentID, a.ExamID, a.StartedAt,
	).Scan(&a.ID)
}

// GetByID retrieves an attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts a WHERE a.id = $1`, id))
}

// GetByStudentAndExam retrieves the student's attempt for an exam.
func (r *AttemptRepository) GetByStudentAndExam(ctx context.Context, studentID, examID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts a WHERE a.student_id = $1 AND a.exam_id = $2`,
		studentID, examID))
}

// ListByStudent returns the student's attempts, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts a
		 WHERE a.student_id = $1
		 ORDER BY a.started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// ListOpenExpired returns unsubmitted attempts whose deadline is before now.
func (r *AttemptRepository) ListOpenExpired(ctx context.Context, now time.Time) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts a
		 JOIN exams e ON e.id = a.exam_id
		 WHERE NOT a.is_submitted
		   AND a.started_at + make_interval(mins => e.time_limit_minutes) < $1
		 ORDER BY a.started_at
		 LIMIT 500`, now)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// Complete finalizes an attempt in a single transaction: score, submission
// flags, every response row, and removal of persisted drafts. Only the first
// completion succeeds; later ones get ErrAttemptClosed and write nothing.
func (r *AttemptRepository) Complete(ctx context.Context, c *model.Completion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET submitted_at = $2, score = $3, max_score = $4,
		     is_submitted = TRUE, force_submitted = $5
		 WHERE id = $1 AND NOT is_submitted`,
		c.AttemptID, c.SubmittedAt, c.Score, c.MaxScore, c.ForceSubmitted)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptClosed
	}

	if len(c.Responses) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"responses"},
			[]string{"id", "attempt_id", "question_id", "selected_option_id", "is_correct", "answered_at"},
			pgx.CopyFromSlice(len(c.Responses), func(i int) ([]any, error) {
				resp := &c.Responses[i]
				if resp.ID == uuid.Nil {
					resp.ID = uuid.New()
				}
				resp.AttemptID = c.AttemptID
				return []any{resp.ID, resp.AttemptID, resp.QuestionID, resp.SelectedOptionID,
					resp.IsCorrect, resp.AnsweredAt}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert responses: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM attempt_drafts WHERE attempt_id = $1`, c.AttemptID); err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}

	return tx.Commit(ctx)
}

// ListResponses returns the stored responses of an attempt.
func (r *AttemptRepository) ListResponses(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_option_id, is_correct, answered_at
		 FROM responses WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.AttemptID, &resp.QuestionID, &resp.SelectedOptionID,
			&resp.IsCorrect, &resp.AnsweredAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
