package report

import (
	"bytes"
	"fmt"
	"sort"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// FontConfig describes the font used throughout the PDF report.
type FontConfig struct {
	Name string
	Size float64
}

// DefaultFontConfig returns the standard report font.
func DefaultFontConfig() FontConfig {
	return FontConfig{Name: "Helvetica", Size: 10}
}

// WritePDF renders the result as a printable PDF summary: a header with
// the student's sheet metadata, the score, and a question table marking
// every wrong answer with the expected text.
func WritePDF(result *Result, fontConfig FontConfig) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPage()

	pdf.SetFont(fontConfig.Name, "B", fontConfig.Size+6)
	pdf.CellFormat(0, 24, encodePDFText(result.Student), "", 1, "L", false, 0, "")

	pdf.SetFont(fontConfig.Name, "", fontConfig.Size)
	for _, k := range sortedKeys(result.Metadata) {
		line := fmt.Sprintf("%s: %s", k, result.Metadata[k])
		pdf.CellFormat(0, 14, encodePDFText(line), "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont(fontConfig.Name, "B", fontConfig.Size+2)
	score := fmt.Sprintf("Score: %d / %d", result.Correct, result.Total)
	pdf.CellFormat(0, 18, score, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Question table header
	pdf.SetFont(fontConfig.Name, "B", fontConfig.Size)
	pdf.CellFormat(40, 16, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(220, 16, "Answer", "1", 0, "L", false, 0, "")
	pdf.CellFormat(220, 16, "Expected", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 16, "OK", "1", 1, "C", false, 0, "")

	pdf.SetFont(fontConfig.Name, "", fontConfig.Size)
	for _, v := range result.Verdicts {
		expected := ""
		mark := "yes"
		if !v.Correct {
			expected = v.Expected
			mark = "no"
		}
		pdf.CellFormat(40, 14, v.Question, "1", 0, "C", false, 0, "")
		pdf.CellFormat(220, 14, encodePDFText(v.Given), "1", 0, "L", false, 0, "")
		pdf.CellFormat(220, 14, encodePDFText(expected), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 14, mark, "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePDFText converts text to ISO-8859-1 to avoid PDF encoding issues.
// Characters outside the charmap are dropped rather than failing the page.
func encodePDFText(text string) string {
	encoder := charmap.ISO8859_1.NewEncoder()
	encoded, err := encoder.String(text)
	if err != nil {
		out := make([]byte, 0, len(text))
		for _, r := range text {
			if r < 256 {
				out = append(out, byte(r))
			}
		}
		return string(out)
	}
	return encoded
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
