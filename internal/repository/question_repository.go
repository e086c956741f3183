package repository

import (
	"context"
	"fmt"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question and option data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a question and its options in one transaction. The
// question is appended after the exam's existing questions; the exam row is
// locked so concurrent inserts get distinct orders.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx,
		`SELECT id FROM exams WHERE id = $1 FOR UPDATE`, q.ExamID).Scan(&locked); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, q.ExamID).Scan(&q.Order); err != nil {
		return fmt.Errorf("count questions: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO questions (exam_id, content, points, question_order)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		q.ExamID, q.Content, q.Points, q.Order,
	).Scan(&q.ID, &q.CreatedAt); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range q.Options {
		o := &q.Options[i]
		o.QuestionID = q.ID
		o.Order = i
		batch.Queue(
			`INSERT INTO options (question_id, content, is_correct, option_order)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			o.QuestionID, o.Content, o.IsCorrect, o.Order,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&o.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert options: %w", err)
	}

	return tx.Commit(ctx)
}
