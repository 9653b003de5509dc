package blockgraph

import "strings"

// ResolveText reconstructs the text content of a block from its children.
// WORD children contribute their recognized text, selected SELECTION
// children contribute the SelectedMarker token, and everything is joined
// by single spaces. A block with no text-bearing descendants yields "".
func (g *Graph) ResolveText(b *Block) string {
	var parts []string
	for _, child := range g.Children(b) {
		switch child.Type {
		case BlockWord:
			if child.Text != "" {
				parts = append(parts, child.Text)
			}
		case BlockSelection:
			if child.Selected {
				parts = append(parts, SelectedMarker)
			}
		}
	}
	return strings.Join(parts, " ")
}
