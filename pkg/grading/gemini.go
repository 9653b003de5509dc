package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGrader judges unsettled answers with a Gemini model. The model
// only sees answers the similarity engine scored in the ambiguous zone,
// so a batch is small and a single request covers it.
type GeminiGrader struct {
	APIKey string
	Model  string
}

// NewGeminiGrader returns a grader for the given API key and model name.
func NewGeminiGrader(apiKey, model string) *GeminiGrader {
	return &GeminiGrader{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

const graderInstruction = `You judge quiz answers transcribed by OCR from handwritten answer sheets.
For each item you get the transcribed answer and the expected answer.
Mark an item correct only when the transcription is plausibly the expected
answer distorted by OCR or minor spelling, not a different answer.
Return strictly a JSON array of objects with fields "question" (string),
"correct" (bool) and "comment" (short string, why). Any text outside the
JSON array is an error.`

// Grade sends the items to the model and returns them with Correct and
// Comment filled in. Transient API failures are retried three times.
func (g *GeminiGrader) Grade(ctx context.Context, items []Verdict) ([]Verdict, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if g.APIKey == "" {
		return nil, errors.New("gemini grader: API key is empty")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(graderInstruction)},
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("gemini grader: marshal items: %w", err)
	}
	parts := []genai.Part{
		genai.Text("ITEMS_JSON:\n" + string(payload)),
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return nil, fmt.Errorf("gemini grader: empty response")
		}
		txt = stripCodeFences(strings.TrimSpace(txt))

		var out []Verdict
		if err := json.Unmarshal([]byte(txt), &out); err != nil {
			return nil, fmt.Errorf("gemini grader: bad JSON: %w", err)
		}
		return applyJudgments(items, out), nil
	}
	return nil, lastErr
}

// applyJudgments copies the model's verdicts onto the original items,
// matched by question ID. Items the model skipped stay unchanged.
func applyJudgments(items, judged []Verdict) []Verdict {
	byQuestion := make(map[string]Verdict, len(judged))
	for _, j := range judged {
		byQuestion[j.Question] = j
	}
	out := make([]Verdict, len(items))
	for i, item := range items {
		if j, ok := byQuestion[item.Question]; ok {
			item.Correct = j.Correct
			item.Comment = j.Comment
		}
		out[i] = item
	}
	return out
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func ptrFloat32(v float32) *float32 { return &v }
