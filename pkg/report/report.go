// Package report renders grading results for humans: a printable PDF
// summary per student and an editable HTML review sheet that can be
// corrected in a browser and read back in.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quizscan/quizscan/pkg/grading"
	"github.com/quizscan/quizscan/pkg/quizsheet"
)

// Result aggregates everything produced for one student's sheet set.
type Result struct {
	Student  string            `json:"student"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Answers  quizsheet.AnswerMap `json:"answers"`
	Verdicts []grading.Verdict   `json:"verdicts,omitempty"`

	Correct int `json:"correct"`
	Total   int `json:"total"`

	Extraction quizsheet.ExtractStats    `json:"extraction"`
	Correction quizsheet.CorrectionStats `json:"correction"`
}

// WriteJSON stores the result as an indented JSON file.
func (r *Result) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result %s: %w", path, err)
	}
	return nil
}
