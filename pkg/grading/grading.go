// Package grading scores extracted answer sheets against an answer key
// and, for answers the fuzzy correction could not settle, asks a
// generative model for a judgment call.
package grading

import (
	"context"

	"github.com/quizscan/quizscan/pkg/quizsheet"
)

// Verdict is the outcome for one question.
type Verdict struct {
	Question string  `json:"question"`
	Given    string  `json:"given"`
	Expected string  `json:"expected"`
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Comment  string  `json:"comment,omitempty"`
}

// Grader judges answers that string similarity alone could not settle.
type Grader interface {
	Grade(ctx context.Context, items []Verdict) ([]Verdict, error)
}

// Score compares every answer against the key and returns per-question
// verdicts plus the number of correct answers. An answer is correct when
// it matches any accepted alternative after normalization. Questions in
// the key with no recorded answer get an empty Given and score zero.
func Score(answers quizsheet.AnswerMap, key quizsheet.AnswerKey) ([]Verdict, int) {
	verdicts := make([]Verdict, 0, len(key))
	correct := 0
	for _, q := range quizsheet.Questions(key) {
		given := answers[q]
		sim := quizsheet.Similarity(given, key[q])
		v := Verdict{
			Question: q,
			Given:    given,
			Expected: key[q],
			Correct:  sim == 1,
			Score:    sim,
		}
		if v.Correct {
			correct++
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, correct
}

// Unsettled filters verdicts to the ones worth a second opinion: wrong
// but close enough that an OCR slip or a spelling variant is plausible.
func Unsettled(verdicts []Verdict, low, high float64) []Verdict {
	var out []Verdict
	for _, v := range verdicts {
		if !v.Correct && v.Score >= low && v.Score < high {
			out = append(out, v)
		}
	}
	return out
}

// Merge folds graded verdicts back into the full list by question ID.
func Merge(all, graded []Verdict) ([]Verdict, int) {
	byQuestion := make(map[string]Verdict, len(graded))
	for _, v := range graded {
		byQuestion[v.Question] = v
	}
	correct := 0
	out := make([]Verdict, len(all))
	for i, v := range all {
		if g, ok := byQuestion[v.Question]; ok {
			v.Correct = g.Correct
			v.Comment = g.Comment
		}
		out[i] = v
		if v.Correct {
			correct++
		}
	}
	return out, correct
}
