// Package blockgraph models the block graph returned by a document-analysis
// service for one scanned page.
//
// A page is described as a flat list of blocks (tables, cells, key/value
// elements, words and selection marks) connected by identifier
// relationships. The package indexes that list and projects text out of it;
// it never mutates the graph it was given.
//
// The same Block structure doubles as the on-disk cache format for raw
// analysis results, so a page can be re-processed without calling the
// service again.
//
// Key Types:
//
// - Block: a single recognized region with its relationships
// - Graph: an identifier index over a list of blocks
//
// Main Functions:
//
// - NewGraph: builds the index from a flat block list
// - ResolveText: reconstructs the text of a block from its WORD children
// - Encode / Decode: the JSON form used for caching
package blockgraph

// BlockType tags the role of a recognized region.
type BlockType string

// Block types produced by the document-analysis service.
const (
	BlockTable     BlockType = "TABLE"
	BlockCell      BlockType = "CELL"
	BlockKeyValue  BlockType = "KEY_VALUE"
	BlockWord      BlockType = "WORD"
	BlockSelection BlockType = "SELECTION"
)

// RelationType tags how one block relates to another.
type RelationType string

// Relationship types between blocks.
const (
	RelChild RelationType = "CHILD" // composition: the target is part of this block
	RelValue RelationType = "VALUE" // key/value pairing for non-table forms
)

// EntityRole distinguishes the two halves of a KEY_VALUE pair.
type EntityRole string

// Entity roles carried by KEY_VALUE blocks.
const (
	RoleKey   EntityRole = "KEY"
	RoleValue EntityRole = "VALUE"
)

// SelectedMarker is the token ResolveText emits for a selected
// selection mark, mirroring the service's own vocabulary.
const SelectedMarker = "SELECTED"

// Relationship links a block to a list of target blocks by identifier.
type Relationship struct {
	Type RelationType `json:"type"`
	IDs  []string     `json:"ids"`
}

// Block is one recognized region of a page.
// Row and column indices are 1-based and only meaningful for CELL blocks;
// Text is only set on WORD blocks; Selected only on SELECTION blocks.
type Block struct {
	ID            string         `json:"id"`
	Type          BlockType      `json:"type"`
	RowIndex      int            `json:"row_index,omitempty"`
	ColumnIndex   int            `json:"column_index,omitempty"`
	Text          string         `json:"text,omitempty"`
	Selected      bool           `json:"selected,omitempty"`
	EntityRole    EntityRole     `json:"entity_role,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Graph indexes a page's blocks by identifier.
// The underlying blocks are treated as read-only.
type Graph struct {
	blocks []Block
	byID   map[string]*Block
}

// NewGraph builds an identifier index over a flat block list.
func NewGraph(blocks []Block) *Graph {
	g := &Graph{
		blocks: blocks,
		byID:   make(map[string]*Block, len(blocks)),
	}
	for i := range g.blocks {
		g.byID[g.blocks[i].ID] = &g.blocks[i]
	}
	return g
}

// Block looks up a block by identifier, or nil if absent.
func (g *Graph) Block(id string) *Block {
	return g.byID[id]
}

// OfType returns every block with the given type, in input order.
func (g *Graph) OfType(t BlockType) []*Block {
	var result []*Block
	for i := range g.blocks {
		if g.blocks[i].Type == t {
			result = append(result, &g.blocks[i])
		}
	}
	return result
}

// Children resolves a block's CHILD relationships to blocks.
// Identifiers that do not resolve are silently skipped.
func (g *Graph) Children(b *Block) []*Block {
	var result []*Block
	if b == nil {
		return result
	}
	for _, rel := range b.Relationships {
		if rel.Type != RelChild {
			continue
		}
		for _, id := range rel.IDs {
			if child := g.byID[id]; child != nil {
				result = append(result, child)
			}
		}
	}
	return result
}

// Value resolves the first VALUE relationship of a block, or nil.
// KEY_VALUE blocks with the KEY role use this to point at their value half.
func (g *Graph) Value(b *Block) *Block {
	if b == nil {
		return nil
	}
	for _, rel := range b.Relationships {
		if rel.Type != RelValue {
			continue
		}
		for _, id := range rel.IDs {
			if target := g.byID[id]; target != nil {
				return target
			}
		}
	}
	return nil
}
