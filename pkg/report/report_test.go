package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/quizscan/quizscan/pkg/grading"
	"github.com/quizscan/quizscan/pkg/quizsheet"
)

func sampleResult() *Result {
	return &Result{
		Student: "alice",
		Metadata: map[string]string{
			"Name":  "Alice Example",
			"Email": "alice@example.com",
		},
		Answers: quizsheet.AnswerMap{
			"Q1": "CRUEL SUMMER",
			"Q2": "CRUEL WINTER",
		},
		Verdicts: []grading.Verdict{
			{Question: "Q1", Given: "CRUEL SUMMER", Expected: "CRUEL SUMMER", Correct: true, Score: 1},
			{Question: "Q2", Given: "CRUEL WINTER", Expected: "VERTIGO", Correct: false, Score: 0.1},
		},
		Correct: 1,
		Total:   2,
	}
}

func TestGenerateAndParseReviewRoundTrip(t *testing.T) {
	html, err := GenerateReview(sampleResult())
	if err != nil {
		t.Fatalf("GenerateReview: %v", err)
	}
	if !strings.Contains(html, "alice") {
		t.Errorf("review sheet missing student name")
	}
	if !strings.Contains(html, `data-question="Q2"`) {
		t.Errorf("review sheet missing editable answer cell")
	}

	metadata, answers, err := ParseReview([]byte(html))
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if answers["Q1"] != "CRUEL SUMMER" || answers["Q2"] != "CRUEL WINTER" {
		t.Errorf("answers after round trip = %v", answers)
	}
	if metadata["Name"] != "Alice Example" || metadata["Email"] != "alice@example.com" {
		t.Errorf("metadata after round trip = %v", metadata)
	}
}

func TestParseReviewPicksUpEdits(t *testing.T) {
	html, err := GenerateReview(sampleResult())
	if err != nil {
		t.Fatalf("GenerateReview: %v", err)
	}

	// Simulate a reviewer fixing Q2 in the browser.
	edited := strings.Replace(html, "CRUEL WINTER", "VERTIGO", 1)

	_, answers, err := ParseReview([]byte(edited))
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if answers["Q2"] != "VERTIGO" {
		t.Errorf("edit lost in round trip: Q2 = %q", answers["Q2"])
	}
}

func TestReviewRoundTripEscapesMarkup(t *testing.T) {
	result := &Result{
		Student: "carol",
		Metadata: map[string]string{
			"Note": "scored < expected & flagged",
		},
		Answers: quizsheet.AnswerMap{
			"Q1": "A < B & \"C\"",
		},
	}

	html, err := GenerateReview(result)
	if err != nil {
		t.Fatalf("GenerateReview: %v", err)
	}

	metadata, answers, err := ParseReview([]byte(html))
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if answers["Q1"] != `A < B & "C"` {
		t.Errorf("Q1 after round trip = %q", answers["Q1"])
	}
	if metadata["Note"] != "scored < expected & flagged" {
		t.Errorf("Note after round trip = %q", metadata["Note"])
	}
}

func TestParseReviewRejectsEmptySheet(t *testing.T) {
	if _, _, err := ParseReview([]byte("<html><body>nothing here</body></html>")); err == nil {
		t.Error("ParseReview accepted a sheet without answer cells")
	}
}

func TestGenerateReviewWithoutVerdicts(t *testing.T) {
	result := &Result{
		Student: "bob",
		Answers: quizsheet.AnswerMap{"Q1": "SOMETHING"},
	}
	html, err := GenerateReview(result)
	if err != nil {
		t.Fatalf("GenerateReview: %v", err)
	}
	_, answers, err := ParseReview([]byte(html))
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if answers["Q1"] != "SOMETHING" {
		t.Errorf("answers = %v", answers)
	}
}

func TestWritePDF(t *testing.T) {
	pdfBytes, err := WritePDF(sampleResult(), DefaultFontConfig())
	if err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
}

func TestEncodePDFText(t *testing.T) {
	if got := encodePDFText("plain"); got != "plain" {
		t.Errorf("encodePDFText(plain) = %q", got)
	}
	// Characters outside ISO-8859-1 must not fail the page.
	if got := encodePDFText("smile ☺"); !strings.HasPrefix(got, "smile") {
		t.Errorf("encodePDFText with non-latin input = %q", got)
	}
}
