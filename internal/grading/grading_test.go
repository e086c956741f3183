package grading

import (
	"reflect"
	"testing"

	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
)

// fixture builds an exam with len(points) questions of three options each;
// option index correct[i] is the right one for question i.
func fixture(points []int, correct []int) *model.Exam {
	exam := &model.Exam{ID: uuid.New(), TimeLimitMinutes: 60}
	for i, p := range points {
		q := model.Question{ID: uuid.New(), ExamID: exam.ID, Points: p, Order: i}
		for j := 0; j < 3; j++ {
			q.Options = append(q.Options, model.Option{
				ID:         uuid.New(),
				QuestionID: q.ID,
				IsCorrect:  j == correct[i],
				Order:      j,
			})
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam
}

func pick(exam *model.Exam, q, o int) model.AnswerInput {
	id := exam.Questions[q].Options[o].ID
	return model.AnswerInput{QuestionID: exam.Questions[q].ID, SelectedOptionID: &id}
}

func TestGrade(t *testing.T) {
	exam := fixture([]int{1, 2, 5}, []int{2, 0, 1})
	foreign := uuid.New()

	tests := []struct {
		name      string
		answers   []model.AnswerInput
		wantScore int
		correct   []bool
		submitted []bool
	}{
		{name: "all correct", answers: []model.AnswerInput{pick(exam, 0, 2), pick(exam, 1, 0), pick(exam, 2, 1)}, wantScore: 8, correct: []bool{true, true, true}, submitted: []bool{true, true, true}},
		{name: "nothing answered", answers: nil, wantScore: 0, correct: []bool{false, false, false}, submitted: []bool{false, false, false}},
		{name: "mixed", answers: []model.AnswerInput{pick(exam, 0, 1), pick(exam, 2, 1)}, wantScore: 5, correct: []bool{false, false, true}, submitted: []bool{true, false, true}},
		{name: "unknown question ignored", answers: []model.AnswerInput{{QuestionID: foreign, SelectedOptionID: &foreign}, pick(exam, 1, 0)}, wantScore: 2, correct: []bool{false, true, false}, submitted: []bool{false, true, false}},
		{name: "option from another question is unanswered", answers: []model.AnswerInput{{QuestionID: exam.Questions[0].ID, SelectedOptionID: &exam.Questions[1].Options[0].ID}}, wantScore: 0, correct: []bool{false, false, false}, submitted: []bool{true, false, false}},
		{name: "explicit blank", answers: []model.AnswerInput{{QuestionID: exam.Questions[2].ID}}, wantScore: 0, correct: []bool{false, false, false}, submitted: []bool{false, false, true}},
		{name: "last entry wins", answers: []model.AnswerInput{pick(exam, 2, 1), pick(exam, 2, 0)}, wantScore: 0, correct: []bool{false, false, false}, submitted: []bool{false, false, true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(exam, tc.answers)
			if got.Score != tc.wantScore {
				t.Fatalf("score = %d, want %d", got.Score, tc.wantScore)
			}
			if got.MaxScore != 8 {
				t.Fatalf("max score = %d, want 8", got.MaxScore)
			}
			if len(got.Questions) != len(exam.Questions) {
				t.Fatalf("got %d question results, want %d", len(got.Questions), len(exam.Questions))
			}
			for i, qr := range got.Questions {
				if qr.QuestionID != exam.Questions[i].ID {
					t.Errorf("q%d: out of exam order", i)
				}
				if qr.IsCorrect != tc.correct[i] {
					t.Errorf("q%d: is_correct = %v, want %v", i, qr.IsCorrect, tc.correct[i])
				}
				if qr.Submitted != tc.submitted[i] {
					t.Errorf("q%d: submitted = %v, want %v", i, qr.Submitted, tc.submitted[i])
				}
				if qr.CorrectOptionID == nil {
					t.Errorf("q%d: missing correct option id", i)
				}
				wantPoints := 0
				if tc.correct[i] {
					wantPoints = exam.Questions[i].Points
				}
				if qr.PointsEarned != wantPoints {
					t.Errorf("q%d: points = %d, want %d", i, qr.PointsEarned, wantPoints)
				}
			}
		})
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	exam := fixture([]int{3, 1, 4, 1, 5}, []int{0, 1, 2, 0, 1})
	answers := []model.AnswerInput{pick(exam, 0, 0), pick(exam, 2, 1), pick(exam, 4, 1)}

	first := Grade(exam, answers)
	for i := 0; i < 20; i++ {
		if again := Grade(exam, answers); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestMaxScoreIndependentOfAnswers(t *testing.T) {
	exam := fixture([]int{2, 3, 7}, []int{0, 0, 0})
	for _, answers := range [][]model.AnswerInput{nil, {pick(exam, 1, 0)}, {pick(exam, 0, 1), pick(exam, 1, 2), pick(exam, 2, 0)}} {
		if got := Grade(exam, answers).MaxScore; got != exam.MaxScore() || got != 12 {
			t.Fatalf("max score = %d, want 12", got)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		score, max int
		want       float64
	}{
		{1, 1, 100},
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{0, 5, 0},
	}
	for _, c := range cases {
		if got := Percentage(c.score, c.max); got != c.want {
			t.Fatalf("Percentage(%d,%d)=%v, want %v", c.score, c.max, got, c.want)
		}
	}
}
