package blockgraph

import "testing"

func wordBlock(id, text string) Block {
	return Block{ID: id, Type: BlockWord, Text: text}
}

func TestResolveText(t *testing.T) {
	blocks := []Block{
		{
			ID:   "cell-1",
			Type: BlockCell,
			Relationships: []Relationship{
				{Type: RelChild, IDs: []string{"w1", "w2", "sel1", "missing"}},
			},
		},
		wordBlock("w1", "CRUEL"),
		wordBlock("w2", "SUMMER"),
		{ID: "sel1", Type: BlockSelection, Selected: true},
	}
	g := NewGraph(blocks)

	got := g.ResolveText(g.Block("cell-1"))
	want := "CRUEL SUMMER SELECTED"
	if got != want {
		t.Errorf("ResolveText = %q, want %q", got, want)
	}
}

func TestResolveTextSkipsUnselectedAndEmpty(t *testing.T) {
	blocks := []Block{
		{
			ID:   "cell-1",
			Type: BlockCell,
			Relationships: []Relationship{
				{Type: RelChild, IDs: []string{"w1", "w2", "sel1"}},
			},
		},
		wordBlock("w1", "HELLO"),
		wordBlock("w2", ""),
		{ID: "sel1", Type: BlockSelection, Selected: false},
	}
	g := NewGraph(blocks)

	if got := g.ResolveText(g.Block("cell-1")); got != "HELLO" {
		t.Errorf("ResolveText = %q, want %q", got, "HELLO")
	}
}

func TestValueResolvesKeyValuePair(t *testing.T) {
	blocks := []Block{
		{
			ID:         "k1",
			Type:       BlockKeyValue,
			EntityRole: RoleKey,
			Relationships: []Relationship{
				{Type: RelValue, IDs: []string{"v1"}},
				{Type: RelChild, IDs: []string{"w1"}},
			},
		},
		{
			ID:         "v1",
			Type:       BlockKeyValue,
			EntityRole: RoleValue,
			Relationships: []Relationship{
				{Type: RelChild, IDs: []string{"w2"}},
			},
		},
		wordBlock("w1", "Name:"),
		wordBlock("w2", "Alice"),
	}
	g := NewGraph(blocks)

	value := g.Value(g.Block("k1"))
	if value == nil || value.ID != "v1" {
		t.Fatalf("Value = %v, want block v1", value)
	}
	if got := g.ResolveText(value); got != "Alice" {
		t.Errorf("value text = %q, want %q", got, "Alice")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blocks := []Block{
		{ID: "t1", Type: BlockTable, Relationships: []Relationship{{Type: RelChild, IDs: []string{"c1"}}}},
		{ID: "c1", Type: BlockCell, RowIndex: 2, ColumnIndex: 3},
		{ID: "s1", Type: BlockSelection, Selected: true},
	}

	data, err := Encode(blocks)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(blocks) {
		t.Fatalf("decoded %d blocks, want %d", len(decoded), len(blocks))
	}

	g := NewGraph(decoded)
	cell := g.Block("c1")
	if cell == nil || cell.RowIndex != 2 || cell.ColumnIndex != 3 {
		t.Errorf("cell after round trip = %+v", cell)
	}
	if sel := g.Block("s1"); sel == nil || !sel.Selected {
		t.Errorf("selection mark lost its state after round trip")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("Decode accepted malformed input")
	}
}
