package quizsheet

import (
	"strconv"
	"strings"

	"github.com/quizscan/quizscan/pkg/blockgraph"
)

// ExtractKeyValues walks the KEY_VALUE blocks of a page and returns the
// recognized form fields as a map. This is the fallback path for pages
// without table structure, and the source of identity metadata (name,
// email) on cover pages.
//
// Keys are trimmed of trailing colons; the first value seen for a key
// wins, later duplicates are ignored.
func ExtractKeyValues(g *blockgraph.Graph) map[string]string {
	fields := make(map[string]string)
	for _, b := range g.OfType(blockgraph.BlockKeyValue) {
		if b.EntityRole != blockgraph.RoleKey {
			continue
		}
		key := strings.TrimSuffix(strings.TrimSpace(g.ResolveText(b)), ":")
		if key == "" {
			continue
		}
		if _, exists := fields[key]; exists {
			continue
		}
		fields[key] = strings.TrimSpace(g.ResolveText(g.Value(b)))
	}
	return fields
}

// AnswersFromKeyValues converts form fields whose keys name a question
// ("7", "7.", "Q7") into an answer map, used when a page carries no
// recognizable table structure. Fields with non-question keys or empty
// values are ignored.
func AnswersFromKeyValues(fields map[string]string, maxQuestion int) AnswerMap {
	if maxQuestion <= 0 {
		maxQuestion = DefaultMaxQuestion
	}
	answers := make(AnswerMap)
	for key, value := range fields {
		if value == "" {
			continue
		}
		k := strings.TrimSuffix(strings.TrimSpace(key), ".")
		k = strings.TrimPrefix(strings.ToUpper(k), "Q")
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 || n > maxQuestion {
			continue
		}
		if _, taken := answers[QuestionID(n)]; !taken {
			answers[QuestionID(n)] = value
		}
	}
	return answers
}
