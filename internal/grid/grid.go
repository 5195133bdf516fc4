package grid

import (
	"fmt"
	"slices"
)

// Grid is the aggregate root of one table: its fields in display order and
// its block partitions in row order. It owns both exclusively.
type Grid struct {
	ID     string   `json:"grid_id" cbor:"1,keyasint" jsonschema:"description=Unique grid identifier"`
	Fields []*Field `json:"fields" cbor:"2,keyasint" jsonschema:"description=Fields in display order"`
	Blocks []*Block `json:"block_metas" cbor:"3,keyasint" jsonschema:"description=Block partitions in row order"`
}

// Clone returns a deep copy of the Grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{ID: g.ID}
	if g.Fields != nil {
		c.Fields = make([]*Field, len(g.Fields))
		for i, f := range g.Fields {
			c.Fields[i] = f.Clone()
		}
	}
	if g.Blocks != nil {
		c.Blocks = make([]*Block, len(g.Blocks))
		for i, b := range g.Blocks {
			c.Blocks[i] = b.Clone()
		}
	}
	return c
}

// GetID returns the Grid's ID.
func (g *Grid) GetID() string {
	return g.ID
}

// Validate checks ids, field types and row counts. Offsets are checked
// separately by CheckOffsets since they may be stale until the caller runs
// RecomputeOffsets.
func (g *Grid) Validate() error {
	if g.ID == "" {
		return errIDRequired
	}
	seen := make(map[string]struct{}, len(g.Fields))
	for i, f := range g.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		if _, ok := seen[f.ID]; ok {
			return fmt.Errorf("field %q: %w", f.ID, errDuplicateID)
		}
		seen[f.ID] = struct{}{}
	}
	clear(seen)
	for i, b := range g.Blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("block %q: %w", b.ID, errDuplicateID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

// CheckOffsets verifies that every block starts right after the rows of the
// blocks before it.
func (g *Grid) CheckOffsets() error {
	var start int32
	for _, b := range g.Blocks {
		if b.StartRowIndex != start {
			return fmt.Errorf("block %q starts at %d, want %d: %w", b.ID, b.StartRowIndex, start, errOffsetMismatch)
		}
		start += b.RowCount
	}
	return nil
}

// RowCount returns the total number of rows across all blocks.
func (g *Grid) RowCount() int32 {
	var n int32
	for _, b := range g.Blocks {
		n += b.RowCount
	}
	return n
}

// Field returns the field with id.
func (g *Grid) Field(id string) (*Field, bool) {
	i := slices.IndexFunc(g.Fields, func(f *Field) bool { return f.ID == id })
	if i < 0 {
		return nil, false
	}
	return g.Fields[i], true
}

// BlockIndex returns the position of the block with id, or -1.
func (g *Grid) BlockIndex(id string) int {
	return slices.IndexFunc(g.Blocks, func(b *Block) bool { return b.ID == id })
}

// Block returns the block with id.
func (g *Grid) Block(id string) (*Block, bool) {
	i := g.BlockIndex(id)
	if i < 0 {
		return nil, false
	}
	return g.Blocks[i], true
}

// LastBlock returns the block new rows are appended to.
func (g *Grid) LastBlock() (*Block, bool) {
	if len(g.Blocks) == 0 {
		return nil, false
	}
	return g.Blocks[len(g.Blocks)-1], true
}

// LocateRowIndex returns the block holding the row at global index and the
// row's offset within that block. Offsets must be current.
func (g *Grid) LocateRowIndex(index int32) (*Block, int32, error) {
	if index >= 0 {
		for _, b := range g.Blocks {
			if index >= b.StartRowIndex && index < b.StartRowIndex+b.RowCount {
				return b, index - b.StartRowIndex, nil
			}
		}
	}
	return nil, -1, fmt.Errorf("row index %d in grid %q: %w", index, g.ID, ErrNotFound)
}

// AddField appends f at the end of the display order.
func (g *Grid) AddField(f *Field) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if _, ok := g.Field(f.ID); ok {
		return fmt.Errorf("field %q: %w", f.ID, errDuplicateID)
	}
	g.Fields = append(g.Fields, f)
	return nil
}

// AddBlock appends b at the end of the row order with its offset set after
// the current last row.
func (g *Grid) AddBlock(b *Block) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if g.BlockIndex(b.ID) >= 0 {
		return fmt.Errorf("block %q: %w", b.ID, errDuplicateID)
	}
	b.StartRowIndex = g.RowCount()
	g.Blocks = append(g.Blocks, b)
	return nil
}

// ApplyFieldChangeset applies cs to the field it targets. The target is looked
// up first, so an empty or unknown field ID always fails with ErrNotFound. The
// grid is left untouched on error.
func (g *Grid) ApplyFieldChangeset(cs *FieldChangeset) error {
	f, ok := g.Field(cs.FieldID)
	if !ok {
		return fmt.Errorf("field %q in grid %q: %w", cs.FieldID, g.ID, ErrNotFound)
	}
	if err := cs.Validate(); err != nil {
		return err
	}
	f.Apply(cs)
	return nil
}

// ApplyBlockChangeset applies cs to the block it targets. Offsets of the
// other blocks are not updated; call RecomputeOffsets afterwards when the
// row count changed. An empty or unknown block ID fails with ErrNotFound
// before the changeset's values are checked. The grid is left untouched on
// error.
func (g *Grid) ApplyBlockChangeset(cs *BlockChangeset) error {
	b, ok := g.Block(cs.BlockID)
	if !ok {
		return fmt.Errorf("block %q in grid %q: %w", cs.BlockID, g.ID, ErrNotFound)
	}
	if err := cs.Validate(); err != nil {
		return err
	}
	b.Apply(cs)
	return nil
}

// RecomputeOffsets restores contiguous global row numbering across blocks.
func (g *Grid) RecomputeOffsets() {
	RecomputeOffsets(g.Blocks)
}
