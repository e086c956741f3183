package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type countingInvalidator struct{ calls map[uuid.UUID]int }

func (c *countingInvalidator) Invalidate(_ context.Context, id uuid.UUID) { c.calls[id]++ }

func newTestExams(t *testing.T) (*ExamService, *countingInvalidator, *fakeClock) {
	t.Helper()
	db := memstore.New()
	inv := &countingInvalidator{calls: map[uuid.UUID]int{}}
	clock := newClock(t0)
	svc := NewExamService(db.Exams(), db.Questions(), inv, zerolog.Nop())
	svc.now = clock.Now
	return svc, inv, clock
}

func twoOptions(correctFirst, correctSecond bool) []model.OptionInput {
	return []model.OptionInput{
		{Content: "yes", IsCorrect: correctFirst},
		{Content: "no", IsCorrect: correctSecond},
	}
}

func TestCreateExamDefaults(t *testing.T) {
	svc, _, _ := newTestExams(t)
	teacher := uuid.New()

	exam, err := svc.Create(context.Background(), teacher, &model.CreateExamRequest{Title: "Physics"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if exam.TimeLimitMinutes != defaultTimeLimitMinutes {
		t.Errorf("TimeLimitMinutes = %d, want %d", exam.TimeLimitMinutes, defaultTimeLimitMinutes)
	}
	if exam.IsPublished || exam.ResultsPublished {
		t.Error("new exam must start unpublished")
	}

	start, end := t0.Add(time.Hour), t0
	_, err = svc.Create(context.Background(), teacher, &model.CreateExamRequest{Title: "Bad", StartDate: &start, EndDate: &end})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("inverted window: err = %v, want ErrInvalidWindow", err)
	}
}

func TestValidWindow(t *testing.T) {
	later := t0.Add(time.Hour)
	tests := []struct {
		name       string
		start, end *time.Time
		want       bool
	}{
		{"open", nil, nil, true},
		{"start only", &t0, nil, true},
		{"end only", nil, &t0, true},
		{"ordered", &t0, &later, true},
		{"same instant", &t0, &t0, true},
		{"reversed", &later, &t0, false},
	}
	for _, tt := range tests {
		if got := validWindow(tt.start, tt.end); got != tt.want {
			t.Errorf("%s: validWindow = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExamOwnership(t *testing.T) {
	svc, _, _ := newTestExams(t)
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	exam, err := svc.Create(ctx, owner, &model.CreateExamRequest{Title: "Physics"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "Hijacked"
	checks := map[string]error{}
	_, checks["get"] = svc.GetOwned(ctx, stranger, exam.ID)
	_, checks["update"] = svc.Update(ctx, stranger, exam.ID, &model.UpdateExamRequest{Title: &title})
	checks["delete"] = svc.Delete(ctx, stranger, exam.ID)
	_, checks["add question"] = svc.AddQuestion(ctx, stranger, exam.ID, &model.AddQuestionRequest{
		Content: "q", Options: twoOptions(true, false),
	})

	for op, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s by stranger: err = %v, want ErrNotFound", op, err)
		}
	}

	got, err := svc.GetOwned(ctx, owner, exam.ID)
	if err != nil || got.Title != "Physics" {
		t.Errorf("owner view = %+v, %v", got, err)
	}
}

func TestAddQuestion(t *testing.T) {
	svc, inv, _ := newTestExams(t)
	ctx := context.Background()
	teacher := uuid.New()
	exam, _ := svc.Create(ctx, teacher, &model.CreateExamRequest{Title: "Physics"})

	tests := []struct {
		name    string
		options []model.OptionInput
		wantErr error
	}{
		{name: "no correct option", options: twoOptions(false, false), wantErr: ErrInvalidSubmission},
		{name: "two correct options", options: twoOptions(true, true), wantErr: ErrInvalidSubmission},
		{name: "single option", options: []model.OptionInput{{Content: "only", IsCorrect: true}}, wantErr: ErrInvalidSubmission},
		{name: "valid", options: twoOptions(false, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddQuestion(ctx, teacher, exam.ID, &model.AddQuestionRequest{Content: "q", Options: tt.options})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	second, err := svc.AddQuestion(ctx, teacher, exam.ID, &model.AddQuestionRequest{
		Content: "q2", Points: 3, Options: twoOptions(true, false),
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if second.Order != 1 || second.Points != 3 {
		t.Errorf("second question order=%d points=%d, want 1 and 3", second.Order, second.Points)
	}
	for i, o := range second.Options {
		if o.Order != i {
			t.Errorf("option %d order = %d", i, o.Order)
		}
	}

	tree, _ := svc.GetOwned(ctx, teacher, exam.ID)
	if len(tree.Questions) != 2 || tree.Questions[0].Points != defaultQuestionPoints {
		t.Errorf("tree = %+v", tree.Questions)
	}
	if tree.MaxScore() != 4 {
		t.Errorf("MaxScore = %d, want 4", tree.MaxScore())
	}
	if inv.calls[exam.ID] != 2 {
		t.Errorf("cache invalidated %d times, want 2", inv.calls[exam.ID])
	}
}

func TestUpdateAndListAvailable(t *testing.T) {
	svc, inv, clock := newTestExams(t)
	ctx := context.Background()
	teacher := uuid.New()
	exam, _ := svc.Create(ctx, teacher, &model.CreateExamRequest{Title: "Physics"})

	if list, _ := svc.ListAvailable(ctx); len(list) != 0 {
		t.Fatalf("unpublished exam listed: %+v", list)
	}

	published := true
	end := t0.Add(time.Hour)
	updated, err := svc.Update(ctx, teacher, exam.ID, &model.UpdateExamRequest{IsPublished: &published, EndDate: model.NullableOf(end)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.IsPublished || updated.Title != "Physics" {
		t.Errorf("updated = %+v", updated)
	}
	if inv.calls[exam.ID] != 1 {
		t.Errorf("cache invalidated %d times, want 1", inv.calls[exam.ID])
	}

	list, _ := svc.ListAvailable(ctx)
	if len(list) != 1 || list[0].ID != exam.ID {
		t.Errorf("available = %+v", list)
	}

	clock.Advance(2 * time.Hour)
	if list, _ := svc.ListAvailable(ctx); len(list) != 0 {
		t.Errorf("closed exam still listed: %+v", list)
	}

	start := t0.Add(3 * time.Hour)
	if _, err := svc.Update(ctx, teacher, exam.ID, &model.UpdateExamRequest{StartDate: model.NullableOf(start)}); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("start after end: err = %v, want ErrInvalidWindow", err)
	}

	// An explicit null clears the bound; absent fields stay as they are.
	reopened, err := svc.Update(ctx, teacher, exam.ID, &model.UpdateExamRequest{EndDate: model.Null[time.Time]()})
	if err != nil {
		t.Fatalf("clear end date: %v", err)
	}
	if reopened.EndDate != nil || !reopened.IsPublished {
		t.Errorf("after clearing end date: %+v", reopened)
	}
	if list, _ := svc.ListAvailable(ctx); len(list) != 1 {
		t.Errorf("exam without end date not listed: %+v", list)
	}

	mine, _ := svc.ListByTeacher(ctx, teacher)
	if len(mine) != 1 {
		t.Errorf("ListByTeacher = %+v", mine)
	}

	if err := svc.Delete(ctx, teacher, exam.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetOwned(ctx, teacher, exam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}
