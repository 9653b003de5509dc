package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/net/html"

	"github.com/quizscan/quizscan/pkg/quizsheet"
)

//go:embed templates/review.tmpl
var templateFS embed.FS

// reviewRow is one question line in the review sheet.
type reviewRow struct {
	Question string
	Given    string
	Expected string
	Correct  bool
}

// reviewMeta is one metadata line in the review sheet.
type reviewMeta struct {
	Key   string
	Value string
}

// reviewData is the template input for one student's review sheet.
type reviewData struct {
	Student string
	Correct int
	Total   int
	Meta    []reviewMeta
	Rows    []reviewRow
}

// GenerateReview renders the result as an editable HTML review sheet.
// Answer and metadata cells carry data attributes and are contenteditable,
// so a reviewer can fix them in a browser, save the page, and feed it
// back through ParseReview. Cell values are HTML-escaped on the way out
// and unescaped by the parser, so raw OCR text survives the round trip.
func GenerateReview(result *Result) (string, error) {
	tmpl, err := template.New("review.tmpl").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(templateFS, "templates/review.tmpl")
	if err != nil {
		return "", fmt.Errorf("error parsing review template: %w", err)
	}

	data := reviewData{
		Student: result.Student,
		Correct: result.Correct,
		Total:   result.Total,
	}
	for _, k := range sortedKeys(result.Metadata) {
		data.Meta = append(data.Meta, reviewMeta{Key: k, Value: result.Metadata[k]})
	}
	if len(result.Verdicts) > 0 {
		for _, v := range result.Verdicts {
			data.Rows = append(data.Rows, reviewRow{
				Question: v.Question,
				Given:    v.Given,
				Expected: v.Expected,
				Correct:  v.Correct,
			})
		}
	} else {
		for _, q := range quizsheet.Questions(result.Answers) {
			data.Rows = append(data.Rows, reviewRow{Question: q, Given: result.Answers[q], Correct: true})
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering review template: %w", err)
	}
	return buf.String(), nil
}

// ParseReview reads a saved review sheet back into metadata and answers.
// It picks up every element carrying a data-question or data-key
// attribute, so edits made in a browser survive the round trip.
func ParseReview(data []byte) (map[string]string, quizsheet.AnswerMap, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse review sheet: %w", err)
	}

	metadata := make(map[string]string)
	answers := make(quizsheet.AnswerMap)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch a.Key {
				case "data-question":
					if a.Val != "" {
						answers[a.Val] = strings.TrimSpace(nodeText(n))
					}
				case "data-key":
					if a.Val != "" {
						metadata[a.Val] = strings.TrimSpace(nodeText(n))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(answers) == 0 {
		return nil, nil, fmt.Errorf("no answer cells found in review sheet")
	}
	return metadata, answers, nil
}

// nodeText collects the concatenated text content of a node subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
