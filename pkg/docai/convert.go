package docai

import (
	"fmt"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/quizscan/quizscan/pkg/blockgraph"
)

// span is a half-open range into the document's full text, taken from a
// layout's first text anchor segment.
type span struct {
	start, end int64
}

func (s span) contains(other span) bool {
	return other.start >= s.start && other.end <= s.end
}

// anchorSpan extracts the text range covered by a layout.
func anchorSpan(layout *documentaipb.Document_Page_Layout) (span, bool) {
	if layout == nil || layout.TextAnchor == nil || len(layout.TextAnchor.TextSegments) == 0 {
		return span{}, false
	}
	seg := layout.TextAnchor.TextSegments[0]
	return span{start: seg.StartIndex, end: seg.EndIndex}, true
}

// BlocksFromProto converts a Document AI response into the generic block
// graph. Tables become TABLE blocks owning CELL blocks with 1-based row
// and column indices; each cell owns the WORD and SELECTION blocks whose
// text anchors fall inside it; form fields become KEY_VALUE block pairs
// joined by a VALUE relationship.
func BlocksFromProto(doc *documentaipb.Document) []blockgraph.Block {
	if doc == nil {
		return nil
	}

	var blocks []blockgraph.Block

	for _, page := range doc.Pages {
		pageNum := int(page.PageNumber)

		// Words first: everything else attaches them by span containment.
		type positioned struct {
			id string
			sp span
		}
		var words []positioned
		for i, token := range page.Tokens {
			sp, ok := anchorSpan(token.Layout)
			if !ok {
				continue
			}
			id := fmt.Sprintf("p%d-word-%d", pageNum, i+1)
			blocks = append(blocks, blockgraph.Block{
				ID:   id,
				Type: blockgraph.BlockWord,
				Text: tokenText(token, doc.Text),
			})
			words = append(words, positioned{id: id, sp: sp})
		}

		// Checkbox visual elements become selection marks.
		var selections []positioned
		for i, ve := range page.VisualElements {
			if !strings.Contains(ve.Type, "checkbox") {
				continue
			}
			sp, ok := anchorSpan(ve.Layout)
			if !ok {
				sp = span{}
			}
			id := fmt.Sprintf("p%d-sel-%d", pageNum, i+1)
			blocks = append(blocks, blockgraph.Block{
				ID:       id,
				Type:     blockgraph.BlockSelection,
				Selected: ve.Type == "filled_checkbox",
			})
			selections = append(selections, positioned{id: id, sp: sp})
		}

		// childrenIn gathers the words and selections inside a layout span.
		childrenIn := func(sp span) []string {
			var ids []string
			for _, w := range words {
				if sp.contains(w.sp) {
					ids = append(ids, w.id)
				}
			}
			for _, sel := range selections {
				if sel.sp != (span{}) && sp.contains(sel.sp) {
					ids = append(ids, sel.id)
				}
			}
			return ids
		}

		for ti, table := range page.Tables {
			tableID := fmt.Sprintf("p%d-table-%d", pageNum, ti+1)
			var cellIDs []string
			rowIndex := 0

			addRow := func(row *documentaipb.Document_Page_Table_TableRow) {
				rowIndex++
				colIndex := 1
				for _, cell := range row.Cells {
					cellID := fmt.Sprintf("%s-cell-%d-%d", tableID, rowIndex, colIndex)
					cellBlock := blockgraph.Block{
						ID:          cellID,
						Type:        blockgraph.BlockCell,
						RowIndex:    rowIndex,
						ColumnIndex: colIndex,
					}
					if sp, ok := anchorSpan(cell.Layout); ok {
						if ids := childrenIn(sp); len(ids) > 0 {
							cellBlock.Relationships = []blockgraph.Relationship{
								{Type: blockgraph.RelChild, IDs: ids},
							}
						}
					}
					blocks = append(blocks, cellBlock)
					cellIDs = append(cellIDs, cellID)

					colIndex++
					if cell.ColSpan > 1 {
						colIndex += int(cell.ColSpan) - 1
					}
				}
			}

			for _, row := range table.HeaderRows {
				addRow(row)
			}
			for _, row := range table.BodyRows {
				addRow(row)
			}

			blocks = append(blocks, blockgraph.Block{
				ID:   tableID,
				Type: blockgraph.BlockTable,
				Relationships: []blockgraph.Relationship{
					{Type: blockgraph.RelChild, IDs: cellIDs},
				},
			})
		}

		for fi, field := range page.FormFields {
			keyID := fmt.Sprintf("p%d-key-%d", pageNum, fi+1)
			valueID := fmt.Sprintf("p%d-value-%d", pageNum, fi+1)

			keyBlock := blockgraph.Block{
				ID:         keyID,
				Type:       blockgraph.BlockKeyValue,
				EntityRole: blockgraph.RoleKey,
				Relationships: []blockgraph.Relationship{
					{Type: blockgraph.RelValue, IDs: []string{valueID}},
				},
			}
			if sp, ok := anchorSpan(field.FieldName); ok {
				if ids := childrenIn(sp); len(ids) > 0 {
					keyBlock.Relationships = append(keyBlock.Relationships,
						blockgraph.Relationship{Type: blockgraph.RelChild, IDs: ids})
				}
			}

			valueBlock := blockgraph.Block{
				ID:         valueID,
				Type:       blockgraph.BlockKeyValue,
				EntityRole: blockgraph.RoleValue,
			}
			if sp, ok := anchorSpan(field.FieldValue); ok {
				if ids := childrenIn(sp); len(ids) > 0 {
					valueBlock.Relationships = []blockgraph.Relationship{
						{Type: blockgraph.RelChild, IDs: ids},
					}
				}
			}

			blocks = append(blocks, keyBlock, valueBlock)
		}
	}

	return blocks
}

// tokenText extracts a token's text, trimming the trailing whitespace
// that Document AI includes when the token has a detected break.
func tokenText(token *documentaipb.Document_Page_Token, fullText string) string {
	txt := textFromLayout(token.Layout, fullText)
	if token.DetectedBreak != nil &&
		token.DetectedBreak.Type != documentaipb.Document_Page_Token_DetectedBreak_TYPE_UNSPECIFIED {
		runesTok := []rune(txt)
		if len(runesTok) > 0 {
			last := runesTok[len(runesTok)-1]
			if last == ' ' || last == '\n' || last == '\r' || last == '\t' {
				txt = string(runesTok[:len(runesTok)-1])
			}
		}
	}
	return txt
}
