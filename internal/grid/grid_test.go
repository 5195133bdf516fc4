package grid

import (
	"errors"
	"reflect"
	"testing"
)

// newTestGrid returns a grid with two fields and blocks holding counts rows.
func newTestGrid(t *testing.T, counts ...int32) *Grid {
	t.Helper()
	ids := &seqIDs{prefix: "id"}
	g := &Grid{ID: "g1"}
	for _, name := range []string{"Name", "Done"} {
		if err := g.AddField(NewField(ids, name, "", RichText)); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range counts {
		b := NewBlock(ids)
		b.RowCount = c
		if err := g.AddBlock(b); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := g.CheckOffsets(); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGrid_ApplyFieldChangeset(t *testing.T) {
	g := newTestGrid(t, 0)
	f := g.Fields[1]
	if err := g.ApplyFieldChangeset(&FieldChangeset{FieldID: f.ID, Width: ptr[int32](200)}); err != nil {
		t.Fatal(err)
	}
	if f.Width != 200 || f.Name != "Done" || f.Type != RichText || !f.Visible {
		t.Errorf("field = %+v", f)
	}
	if g.Fields[0].Width != DefaultFieldWidth {
		t.Errorf("sibling field modified: %+v", g.Fields[0])
	}
}

func TestGrid_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		apply func(g *Grid) error
	}{
		{"field", func(g *Grid) error {
			return g.ApplyFieldChangeset(&FieldChangeset{FieldID: "missing", Name: ptr("x")})
		}},
		{"block", func(g *Grid) error {
			return g.ApplyBlockChangeset(BlockChangesetFromRowCount("missing", 3))
		}},
		{"field empty id", func(g *Grid) error {
			return g.ApplyFieldChangeset(&FieldChangeset{Width: ptr[int32](200)})
		}},
		{"field missing with invalid type", func(g *Grid) error {
			return g.ApplyFieldChangeset(&FieldChangeset{FieldID: "missing", Type: ptr(FieldType(9))})
		}},
		{"block empty id", func(g *Grid) error {
			return g.ApplyBlockChangeset(&BlockChangeset{RowCount: ptr[int32](1)})
		}},
		{"block missing with negative count", func(g *Grid) error {
			return g.ApplyBlockChangeset(BlockChangesetFromRowCount("missing", -1))
		}},
		{"row empty id", func(g *Grid) error {
			br := &BlockRows{BlockID: g.Blocks[0].ID}
			return br.ApplyRowChangeset(&RowChangeset{Height: ptr[int32](10)})
		}},
		{"row index", func(g *Grid) error {
			_, _, err := g.LocateRowIndex(100)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGrid(t, 2, 3)
			before := g.Clone()
			if err := tt.apply(g); !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			if !reflect.DeepEqual(g, before) {
				t.Errorf("grid modified:\n got %+v\nwant %+v", g, before)
			}
		})
	}
}

func TestGrid_ApplyBlockChangeset(t *testing.T) {
	g := newTestGrid(t, 2, 3, 4)
	mid := g.Blocks[1]
	if err := g.ApplyBlockChangeset(BlockChangesetFromRowCount(mid.ID, 10)); err != nil {
		t.Fatal(err)
	}
	if mid.RowCount != 10 {
		t.Errorf("RowCount = %d, want 10", mid.RowCount)
	}
	// Offsets are only restored by RecomputeOffsets.
	if g.Blocks[2].StartRowIndex != 5 {
		t.Errorf("sibling offset = %d, want unchanged 5", g.Blocks[2].StartRowIndex)
	}
	if err := g.CheckOffsets(); err == nil {
		t.Error("CheckOffsets() succeeded before recompute")
	}
	g.RecomputeOffsets()
	if err := g.CheckOffsets(); err != nil {
		t.Errorf("CheckOffsets() = %v", err)
	}
	if g.Blocks[2].StartRowIndex != 12 {
		t.Errorf("StartRowIndex = %d, want 12", g.Blocks[2].StartRowIndex)
	}

	if err := g.ApplyBlockChangeset(BlockChangesetFromRowCount(mid.ID, -1)); err == nil {
		t.Error("negative row count accepted")
	}
	if mid.RowCount != 10 {
		t.Errorf("RowCount = %d after rejected changeset", mid.RowCount)
	}
}

func TestGrid_LocateRowIndex(t *testing.T) {
	g := newTestGrid(t, 2, 0, 3)
	tests := []struct {
		index     int32
		wantBlock int
		wantOff   int32
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 2, 0},
		{4, 2, 2},
	}
	for _, tt := range tests {
		b, off, err := g.LocateRowIndex(tt.index)
		if err != nil {
			t.Fatalf("LocateRowIndex(%d) = %v", tt.index, err)
		}
		if b != g.Blocks[tt.wantBlock] || off != tt.wantOff {
			t.Errorf("LocateRowIndex(%d) = %s/%d, want %s/%d", tt.index, b.ID, off, g.Blocks[tt.wantBlock].ID, tt.wantOff)
		}
	}
	for _, idx := range []int32{-1, 5} {
		if _, _, err := g.LocateRowIndex(idx); !errors.Is(err, ErrNotFound) {
			t.Errorf("LocateRowIndex(%d) = %v, want ErrNotFound", idx, err)
		}
	}
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name string
		g    *Grid
	}{
		{"no id", &Grid{}},
		{"dup field", &Grid{ID: "g", Fields: []*Field{{ID: "f"}, {ID: "f"}}}},
		{"bad type", &Grid{ID: "g", Fields: []*Field{{ID: "f", Type: 42}}}},
		{"dup block", &Grid{ID: "g", Blocks: []*Block{{ID: "b"}, {ID: "b"}}}},
		{"negative count", &Grid{ID: "g", Blocks: []*Block{{ID: "b", RowCount: -2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.g.Validate(); err == nil {
				t.Error("Validate() succeeded")
			}
		})
	}
}

func TestGrid_AddField(t *testing.T) {
	g := newTestGrid(t)
	if err := g.AddField(&Field{ID: g.Fields[0].ID}); err == nil {
		t.Error("AddField accepted duplicate ID")
	}
	if err := g.AddBlock(&Block{ID: "b", RowCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddBlock(&Block{ID: "b"}); err == nil {
		t.Error("AddBlock accepted duplicate ID")
	}
	if g.RowCount() != 1 {
		t.Errorf("RowCount() = %d, want 1", g.RowCount())
	}
	if last, ok := g.LastBlock(); !ok || last.ID != "b" {
		t.Errorf("LastBlock() = %v, %v", last, ok)
	}
}

func TestGrid_Clone(t *testing.T) {
	g := newTestGrid(t, 1)
	c := g.Clone()
	c.Fields[0].Name = "changed"
	c.Blocks[0].RowCount = 9
	if g.Fields[0].Name == "changed" || g.Blocks[0].RowCount == 9 {
		t.Error("Clone shares entities")
	}
}
