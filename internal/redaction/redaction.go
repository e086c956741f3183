// Package redaction turns an authoritative exam into the answer-blind view a
// student receives during an attempt.
package redaction

import (
	"math/rand/v2"

	"github.com/etests/etests-backend/internal/model"
)

// Shuffler permutes n elements through swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// ForStudent redacts exam using a freshly seeded shuffle, so two calls for
// the same attempt may present a different order.
func ForStudent(exam *model.Exam) model.StudentExam {
	return WithShuffler(exam, rand.Shuffle)
}

// WithShuffler redacts exam with the given permutation source. The input is
// never modified. Questions are permuted when RandomizeQuestions is set and
// each question's options when RandomizeOptions is set; Order fields are
// then renumbered from zero so the authoring order cannot be read back.
func WithShuffler(exam *model.Exam, shuffle Shuffler) model.StudentExam {
	questions := make([]model.StudentQuestion, len(exam.Questions))
	for i := range exam.Questions {
		questions[i] = redactQuestion(&exam.Questions[i], exam.RandomizeOptions, shuffle)
	}

	if exam.RandomizeQuestions {
		shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	for i := range questions {
		questions[i].Order = i
	}

	return model.StudentExam{
		ID:               exam.ID,
		Title:            exam.Title,
		Description:      exam.Description,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		Questions:        questions,
	}
}

func redactQuestion(q *model.Question, randomize bool, shuffle Shuffler) model.StudentQuestion {
	options := make([]model.StudentOption, len(q.Options))
	for i, o := range q.Options {
		options[i] = model.StudentOption{ID: o.ID, Content: o.Content}
	}

	if randomize {
		shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
	}
	for i := range options {
		options[i].Order = i
	}

	return model.StudentQuestion{
		ID:      q.ID,
		Content: q.Content,
		Points:  q.Points,
		Options: options,
	}
}
