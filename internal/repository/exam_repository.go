package repository

import (
	"context"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `e.id, e.teacher_id, e.title, e.description, e.time_limit_minutes,
	e.start_date, e.end_date, e.randomize_questions, e.randomize_options,
	e.is_published, e.results_published, e.created_at, e.updated_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Description, &e.TimeLimitMinutes,
		&e.StartDate, &e.EndDate, &e.RandomizeQuestions, &e.RandomizeOptions,
		&e.IsPublished, &e.ResultsPublished, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam row without its questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id))
}

// GetTree retrieves an exam with all its questions and options, both in
// authored order.
func (r *ExamRepository) GetTree(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.exam_id, q.content, q.points, q.question_order, q.created_at,
		        o.id, o.content, o.is_correct, o.option_order
		 FROM questions q
		 JOIN options o ON o.question_id = q.id
		 WHERE q.exam_id = $1
		 ORDER BY q.question_order, q.created_at, o.option_order`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	e.Questions = []model.Question{}
	for rows.Next() {
		var q model.Question
		var o model.Option
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Content, &q.Points, &q.Order, &q.CreatedAt,
			&o.ID, &o.Content, &o.IsCorrect, &o.Order); err != nil {
			return nil, err
		}
		o.QuestionID = q.ID
		n := len(e.Questions)
		if n == 0 || e.Questions[n-1].ID != q.ID {
			e.Questions = append(e.Questions, q)
			n++
		}
		e.Questions[n-1].Options = append(e.Questions[n-1].Options, o)
	}
	return e, rows.Err()
}

func (r *ExamRepository) listSummaries(ctx context.Context, where string, args ...any) ([]model.ExamSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title, e.description, e.time_limit_minutes, e.start_date, e.end_date,
		        e.is_published, COUNT(q.id)
		 FROM exams e
		 LEFT JOIN questions q ON q.exam_id = e.id
		 WHERE `+where+`
		 GROUP BY e.id
		 ORDER BY e.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.ExamSummary{}
	for rows.Next() {
		var s model.ExamSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.TimeLimitMinutes,
			&s.StartDate, &s.EndDate, &s.IsPublished, &s.QuestionCount); err != nil {
			return nil, err
		}
		exams = append(exams, s)
	}
	return exams, rows.Err()
}

// ListByTeacher returns the teacher's own exams with question counts.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.ExamSummary, error) {
	return r.listSummaries(ctx, `e.teacher_id = $1`, teacherID)
}

// ListAvailable returns published exams whose window contains now.
func (r *ExamRepository) ListAvailable(ctx context.Context, now time.Time) ([]model.ExamSummary, error) {
	return r.listSummaries(ctx,
		`e.is_published
		 AND (e.start_date IS NULL OR e.start_date <= $1)
		 AND (e.end_date IS NULL OR e.end_date >= $1)`, now)
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (teacher_id, title, description, time_limit_minutes, start_date, end_date,
		                    randomize_questions, randomize_options, is_published, results_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		e.TeacherID, e.Title, e.Description, e.TimeLimitMinutes, e.StartDate, e.EndDate,
		e.RandomizeQuestions, e.RandomizeOptions, e.IsPublished, e.ResultsPublished,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update writes every mutable column of the exam.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`UPDATE exams SET title = $2, description = $3, time_limit_minutes = $4,
		        start_date = $5, end_date = $6, randomize_questions = $7, randomize_options = $8,
		        is_published = $9, results_published = $10, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		e.ID, e.Title, e.Description, e.TimeLimitMinutes, e.StartDate, e.EndDate,
		e.RandomizeQuestions, e.RandomizeOptions, e.IsPublished, e.ResultsPublished,
	).Scan(&e.UpdatedAt)
}

// Delete removes an exam. Questions, options, attempts and responses cascade.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
