// Package memstore provides in-memory implementations of the repository
// contracts used by the services. Errors mirror the PostgreSQL repositories:
// a missing row is pgx.ErrNoRows.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB holds every table. Use the accessor views to get typed stores.
type DB struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*model.User
	exams     map[uuid.UUID]*model.Exam
	attempts  map[uuid.UUID]*model.Attempt
	responses map[uuid.UUID][]model.Response
	drafts    map[uuid.UUID]map[uuid.UUID]uuid.UUID
	// draftExp is the deadline passed with the latest draft write.
	draftExp map[uuid.UUID]time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		users:     map[uuid.UUID]*model.User{},
		exams:     map[uuid.UUID]*model.Exam{},
		attempts:  map[uuid.UUID]*model.Attempt{},
		responses: map[uuid.UUID][]model.Response{},
		drafts:    map[uuid.UUID]map[uuid.UUID]uuid.UUID{},
		draftExp:  map[uuid.UUID]time.Time{},
	}
}

func (db *DB) Users() *Users         { return &Users{db} }
func (db *DB) Exams() *Exams         { return &Exams{db} }
func (db *DB) Questions() *Questions { return &Questions{db} }
func (db *DB) Attempts() *Attempts   { return &Attempts{db} }
func (db *DB) Drafts() *Drafts       { return &Drafts{db} }

// ─── Users ──────────────────────────────────────────────────────────────

type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.db.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.db.users[u.ID] = &cp
	return nil
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Users) UpdateSessionID(_ context.Context, id uuid.UUID, sessionID *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if sessionID == nil {
		u.CurrentSessionID = nil
	} else {
		v := *sessionID
		u.CurrentSessionID = &v
	}
	return nil
}

// SetActive toggles the account flag. Tests use it to disable a user.
func (s *Users) SetActive(id uuid.UUID, active bool) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		u.IsActive = active
	}
}

// ─── Exams ──────────────────────────────────────────────────────────────

type Exams struct{ db *DB }

func cloneExam(e *model.Exam) *model.Exam {
	cp := *e
	cp.Questions = make([]model.Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Options = append([]model.Option(nil), q.Options...)
		cp.Questions[i] = q
	}
	return &cp
}

func (s *Exams) Create(_ context.Context, e *model.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	if e.Questions == nil {
		e.Questions = []model.Question{}
	}
	s.db.exams[e.ID] = cloneExam(e)
	return nil
}

// Put stores a fully built exam tree as-is, assigning missing ids.
func (s *Exams) Put(e *model.Exam) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	for i := range e.Questions {
		q := &e.Questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.ExamID = e.ID
		for j := range q.Options {
			if q.Options[j].ID == uuid.Nil {
				q.Options[j].ID = uuid.New()
			}
			q.Options[j].QuestionID = q.ID
		}
	}
	s.db.exams[e.ID] = cloneExam(e)
}

func (s *Exams) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.GetTree(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Questions = nil
	return e, nil
}

func (s *Exams) GetTree(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	e, ok := s.db.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneExam(e), nil
}

func (s *Exams) Invalidate(context.Context, uuid.UUID) {}

func summarize(e *model.Exam) model.ExamSummary {
	return model.ExamSummary{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		TimeLimitMinutes: e.TimeLimitMinutes,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		IsPublished:      e.IsPublished,
		QuestionCount:    len(e.Questions),
	}
}

func (s *Exams) list(keep func(*model.Exam) bool) []model.ExamSummary {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	matched := []*model.Exam{}
	for _, e := range s.db.exams {
		if keep(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	out := make([]model.ExamSummary, len(matched))
	for i, e := range matched {
		out[i] = summarize(e)
	}
	return out
}

func (s *Exams) ListByTeacher(_ context.Context, teacherID uuid.UUID) ([]model.ExamSummary, error) {
	return s.list(func(e *model.Exam) bool { return e.TeacherID == teacherID }), nil
}

func (s *Exams) ListAvailable(_ context.Context, now time.Time) ([]model.ExamSummary, error) {
	return s.list(func(e *model.Exam) bool { return e.IsAvailableAt(now) }), nil
}

func (s *Exams) Update(_ context.Context, e *model.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.exams[e.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	questions := existing.Questions
	e.UpdatedAt = time.Now().UTC()
	cp := cloneExam(e)
	cp.Questions = questions
	s.db.exams[e.ID] = cp
	return nil
}

func (s *Exams) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.exams[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.db.exams, id)
	for aid, a := range s.db.attempts {
		if a.ExamID == id {
			delete(s.db.attempts, aid)
			delete(s.db.responses, aid)
			delete(s.db.drafts, aid)
		}
	}
	return nil
}

// ─── Questions ──────────────────────────────────────────────────────────

type Questions struct{ db *DB }

func (s *Questions) Create(_ context.Context, q *model.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.exams[q.ExamID]
	if !ok {
		return pgx.ErrNoRows
	}
	q.ID = uuid.New()
	q.Order = len(e.Questions)
	q.CreatedAt = time.Now().UTC()
	for i := range q.Options {
		q.Options[i].ID = uuid.New()
		q.Options[i].QuestionID = q.ID
		q.Options[i].Order = i
	}
	cp := *q
	cp.Options = append([]model.Option(nil), q.Options...)
	e.Questions = append(e.Questions, cp)
	return nil
}

// ─── Attempts ───────────────────────────────────────────────────────────

type Attempts struct{ db *DB }

func (s *Attempts) Create(_ context.Context, a *model.Attempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.attempts {
		if existing.StudentID == a.StudentID && existing.ExamID == a.ExamID {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	cp := *a
	s.db.attempts[a.ID] = &cp
	return nil
}

func (s *Attempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *Attempts) GetByStudentAndExam(_ context.Context, studentID, examID uuid.UUID) (*model.Attempt, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, a := range s.db.attempts {
		if a.StudentID == studentID && a.ExamID == examID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Attempts) collect(keep func(*model.Attempt) bool) []model.Attempt {
	out := []model.Attempt{}
	for _, a := range s.db.attempts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (s *Attempts) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.Attempt, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.collect(func(a *model.Attempt) bool { return a.StudentID == studentID }), nil
}

func (s *Attempts) ListOpenExpired(_ context.Context, now time.Time) ([]model.Attempt, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.collect(func(a *model.Attempt) bool {
		e, ok := s.db.exams[a.ExamID]
		return ok && !a.IsSubmitted && model.IsExpired(a.StartedAt, e.TimeLimitMinutes, now)
	}), nil
}

func (s *Attempts) Complete(_ context.Context, c *model.Completion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[c.AttemptID]
	if !ok {
		return pgx.ErrNoRows
	}
	if a.IsSubmitted {
		return repository.ErrAttemptClosed
	}
	submittedAt := c.SubmittedAt
	score, maxScore := c.Score, c.MaxScore
	a.SubmittedAt = &submittedAt
	a.Score = &score
	a.MaxScore = &maxScore
	a.IsSubmitted = true
	a.ForceSubmitted = c.ForceSubmitted

	stored := make([]model.Response, len(c.Responses))
	for i, r := range c.Responses {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.AttemptID = c.AttemptID
		stored[i] = r
	}
	s.db.responses[c.AttemptID] = stored
	delete(s.db.drafts, c.AttemptID)
	return nil
}

func (s *Attempts) ListResponses(_ context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return append([]model.Response{}, s.db.responses[attemptID]...), nil
}

// ─── Drafts ─────────────────────────────────────────────────────────────

type Drafts struct{ db *DB }

func (s *Drafts) Save(_ context.Context, attemptID, questionID, optionID uuid.UUID, expiresAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.draftExp[attemptID] = expiresAt
	m, ok := s.db.drafts[attemptID]
	if !ok {
		m = map[uuid.UUID]uuid.UUID{}
		s.db.drafts[attemptID] = m
	}
	m[questionID] = optionID
	return nil
}

func (s *Drafts) Load(_ context.Context, attemptID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make(map[uuid.UUID]uuid.UUID, len(s.db.drafts[attemptID]))
	for q, o := range s.db.drafts[attemptID] {
		out[q] = o
	}
	return out, nil
}

func (s *Drafts) Clear(_ context.Context, attemptID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.drafts, attemptID)
	delete(s.db.draftExp, attemptID)
	return nil
}

// ExpiresAt reports the deadline the attempt's drafts were last saved with.
func (s *Drafts) ExpiresAt(attemptID uuid.UUID) (time.Time, bool) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.draftExp[attemptID]
	return t, ok
}
