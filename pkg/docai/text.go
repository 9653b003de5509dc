package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts the text covered by a layout's anchor segments
// from the document's full text. Indices are clamped to the text bounds.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	result := strings.Builder{}
	totalRunes := len(runes)

	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > totalRunes {
			end = totalRunes
		}
		if start > end {
			start = end
		}
		result.WriteString(string(runes[start:end]))
	}
	return result.String()
}
