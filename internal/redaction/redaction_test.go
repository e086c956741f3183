package redaction

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
)

func sampleExam(randQ, randO bool) *model.Exam {
	desc := "arithmetic"
	exam := &model.Exam{
		ID:                 uuid.New(),
		Title:              "Math",
		Description:        &desc,
		TimeLimitMinutes:   45,
		RandomizeQuestions: randQ,
		RandomizeOptions:   randO,
		IsPublished:        true,
	}
	for i := 0; i < 6; i++ {
		q := model.Question{ID: uuid.New(), ExamID: exam.ID, Content: "q", Points: i + 1, Order: i}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, model.Option{ID: uuid.New(), QuestionID: q.ID, Content: "o", IsCorrect: j == 3, Order: j})
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam
}

// reverse is a deterministic "shuffle" that reverses the slice.
func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestStudentTypesCarryNoCorrectness(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeOf(model.StudentExam{}),
		reflect.TypeOf(model.StudentQuestion{}),
		reflect.TypeOf(model.StudentOption{}),
	} {
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if strings.Contains(strings.ToLower(f.Name), "correct") || strings.Contains(f.Tag.Get("json"), "correct") {
				t.Fatalf("%s.%s exposes correctness", typ.Name(), f.Name)
			}
		}
	}
}

func TestForStudentNeverLeaksCorrectness(t *testing.T) {
	for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		exam := sampleExam(flags[0], flags[1])
		raw, err := json.Marshal(ForStudent(exam))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(raw), "correct") {
			t.Fatalf("flags %v: payload contains correctness: %s", flags, raw)
		}
	}
}

func TestWithShufflerKeepsOrderWhenNotRandomized(t *testing.T) {
	exam := sampleExam(false, false)
	got := WithShuffler(exam, reverse)

	for i, q := range got.Questions {
		if q.ID != exam.Questions[i].ID || q.Order != i {
			t.Fatalf("question %d moved", i)
		}
		for j, o := range q.Options {
			if o.ID != exam.Questions[i].Options[j].ID || o.Order != j {
				t.Fatalf("question %d option %d moved", i, j)
			}
		}
	}
}

func TestWithShufflerRandomizesIndependently(t *testing.T) {
	exam := sampleExam(true, false)
	got := WithShuffler(exam, reverse)
	last := len(exam.Questions) - 1
	if got.Questions[0].ID != exam.Questions[last].ID {
		t.Fatalf("questions not permuted")
	}
	if got.Questions[0].Options[0].ID != exam.Questions[last].Options[0].ID {
		t.Fatalf("options permuted without the option flag")
	}

	exam = sampleExam(false, true)
	got = WithShuffler(exam, reverse)
	if got.Questions[0].ID != exam.Questions[0].ID {
		t.Fatalf("questions permuted without the question flag")
	}
	if got.Questions[0].Options[0].ID != exam.Questions[0].Options[3].ID {
		t.Fatalf("options not permuted")
	}
}

func TestWithShufflerRenumbersOrder(t *testing.T) {
	got := WithShuffler(sampleExam(true, true), reverse)
	for i, q := range got.Questions {
		if q.Order != i {
			t.Fatalf("question order = %d, want %d", q.Order, i)
		}
		for j, o := range q.Options {
			if o.Order != j {
				t.Fatalf("option order = %d, want %d", o.Order, j)
			}
		}
	}
}

func TestForStudentDoesNotMutateInput(t *testing.T) {
	exam := sampleExam(true, true)
	before, _ := json.Marshal(exam)
	for i := 0; i < 10; i++ {
		ForStudent(exam)
	}
	after, _ := json.Marshal(exam)
	if string(before) != string(after) {
		t.Fatal("authoritative exam was modified")
	}
}

func TestForStudentPreservesMembership(t *testing.T) {
	exam := sampleExam(true, true)
	got := ForStudent(exam)

	want := map[uuid.UUID]map[uuid.UUID]bool{}
	for _, q := range exam.Questions {
		want[q.ID] = map[uuid.UUID]bool{}
		for _, o := range q.Options {
			want[q.ID][o.ID] = true
		}
	}
	if len(got.Questions) != len(want) {
		t.Fatalf("got %d questions, want %d", len(got.Questions), len(want))
	}
	for _, q := range got.Questions {
		opts, ok := want[q.ID]
		if !ok {
			t.Fatalf("unknown question %s", q.ID)
		}
		if len(q.Options) != len(opts) {
			t.Fatalf("question %s lost options", q.ID)
		}
		for _, o := range q.Options {
			if !opts[o.ID] {
				t.Fatalf("option %s moved across questions", o.ID)
			}
		}
	}
}
