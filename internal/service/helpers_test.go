package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type attemptFixture struct {
	db       *memstore.DB
	clock    *fakeClock
	svc      *AttemptService
	exam     *model.Exam
	student  uuid.UUID
	correct  uuid.UUID
	wrong    uuid.UUID
	question uuid.UUID
}

// newAttemptFixture seeds the single-question exam used throughout: time
// limit 60, one question worth 1 point, correct option C.
func newAttemptFixture(t *testing.T, resultsPublished bool) *attemptFixture {
	t.Helper()

	db := memstore.New()
	exam := &model.Exam{
		TeacherID:        uuid.New(),
		Title:            "Chemistry",
		TimeLimitMinutes: 60,
		IsPublished:      true,
		ResultsPublished: resultsPublished,
		Questions: []model.Question{{
			Content: "Pick C",
			Points:  1,
			Options: []model.Option{
				{Content: "A", Order: 0},
				{Content: "B", Order: 1},
				{Content: "C", IsCorrect: true, Order: 2},
			},
		}},
	}
	db.Exams().Put(exam)

	clock := newClock(t0)
	svc := NewAttemptService(db.Exams(), db.Attempts(), db.Drafts(), zerolog.Nop())
	svc.now = clock.Now

	return &attemptFixture{
		db:       db,
		clock:    clock,
		svc:      svc,
		exam:     exam,
		student:  uuid.New(),
		question: exam.Questions[0].ID,
		correct:  exam.Questions[0].Options[2].ID,
		wrong:    exam.Questions[0].Options[0].ID,
	}
}

func (f *attemptFixture) start(t *testing.T) *model.AttemptStartPayload {
	t.Helper()
	payload, err := f.svc.Start(context.Background(), f.student, f.exam.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return payload
}

func (f *attemptFixture) answer(optionID uuid.UUID) []model.AnswerInput {
	return []model.AnswerInput{{QuestionID: f.question, SelectedOptionID: &optionID}}
}

func (f *attemptFixture) stored(t *testing.T, attemptID uuid.UUID) *model.Attempt {
	t.Helper()
	a, err := f.db.Attempts().GetByID(context.Background(), attemptID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return a
}
