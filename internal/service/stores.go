package service

import (
	"context"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
)

// The interfaces below are satisfied by the PostgreSQL/Redis repositories
// and by memstore.

// UserStore persists accounts and their current session id.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateSessionID(ctx context.Context, id uuid.UUID, sessionID *string) error
}

// ExamCatalog serves full exam trees, correctness flags included.
type ExamCatalog interface {
	GetTree(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// ExamStore is the authoring side of exams.
type ExamStore interface {
	ExamCatalog
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.ExamSummary, error)
	ListAvailable(ctx context.Context, now time.Time) ([]model.ExamSummary, error)
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionStore appends questions, with their options, to an exam.
type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
}

// CacheInvalidator drops cached exam trees after authoring writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, examID uuid.UUID)
}

// AttemptStore persists attempts and their graded responses.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetByStudentAndExam(ctx context.Context, studentID, examID uuid.UUID) (*model.Attempt, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Attempt, error)
	ListOpenExpired(ctx context.Context, now time.Time) ([]model.Attempt, error)
	Complete(ctx context.Context, c *model.Completion) error
	ListResponses(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error)
}

// DraftStore keeps in-progress answer selections of live attempts.
type DraftStore interface {
	// Save keeps the selection at least until expiresAt, the attempt deadline.
	Save(ctx context.Context, attemptID, questionID, optionID uuid.UUID, expiresAt time.Time) error
	Load(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	Clear(ctx context.Context, attemptID uuid.UUID) error
}
