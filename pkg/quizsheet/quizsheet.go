// Package quizsheet recovers quiz answers from the OCR block graph of a
// scanned answer sheet and repairs recognition errors against a known
// answer key.
//
// The sheet layout is a table whose rows carry two independent question
// groups side by side: columns 1-3 hold (question number, question text,
// handwritten answer) for the low question range, columns 4-6 the same for
// the high range. OCR of the printed number cells is unreliable, so the
// parser falls back to leading digits in the question text and finally to
// sequential inference.
//
// Extraction produces a raw map from question identifier ("Q1", "Q2", ...)
// to answer text. When an answer key is available, a three-pass correction
// engine repairs the map: it detects cells whose text concatenates two
// consecutive expected answers, replaces close spelling variants with the
// expected text, and detects answers split or displaced across cells,
// shifting every subsequent assignment to compensate.
//
// No function in this package returns an error during normal operation:
// malformed rows are skipped, ambiguous similarity scores are left
// uncorrected, and an unresolvable mismatch keeps the originally extracted
// text. Callers observe the degradation through the returned stats.
//
// Main Functions:
//
// - ExtractAnswers: table locator and dual-column row parser
// - ExtractKeyValues: the non-table key/value fallback path
// - Correct: the three-pass correction engine
// - Normalize, Similarity: the text comparison primitives
package quizsheet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// AnswerMap maps question identifiers ("Q<n>") to answer text.
type AnswerMap map[string]string

// AnswerKey maps question identifiers to the expected answer text.
// An expected answer may join several acceptable literal alternatives
// with "/", e.g. "GLORY/HAPPY DAYS".
type AnswerKey map[string]string

// LoadAnswerKey reads an answer key from a JSON file mapping question
// identifiers to expected answer strings.
func LoadAnswerKey(path string) (AnswerKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answer key: %w", err)
	}
	var key AnswerKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse answer key %s: %w", path, err)
	}
	return key, nil
}

// QuestionID formats a question number as its map identifier.
func QuestionID(n int) string {
	return "Q" + strconv.Itoa(n)
}

// questionNumber parses a map identifier back to its number, or 0.
func questionNumber(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "Q"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Questions returns the question identifiers present in a map, sorted by
// question number.
func Questions(m map[string]string) []string {
	nums := sortedQuestions(m)
	ids := make([]string, len(nums))
	for i, n := range nums {
		ids[i] = QuestionID(n)
	}
	return ids
}

// sortedQuestions returns the question numbers present in a map, ascending.
func sortedQuestions(m map[string]string) []int {
	var qs []int
	for id := range m {
		if n := questionNumber(id); n > 0 {
			qs = append(qs, n)
		}
	}
	sort.Ints(qs)
	return qs
}
