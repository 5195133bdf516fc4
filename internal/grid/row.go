package grid

import (
	"fmt"
	"maps"
)

// DefaultRowHeight is the display height given to new rows.
const DefaultRowHeight int32 = 36

// Cell is one field's value within one row, already encoded to its canonical
// text form.
type Cell struct {
	FieldID string `json:"field_id" cbor:"1,keyasint" jsonschema:"description=Field this value belongs to"`
	Data    string `json:"data" cbor:"2,keyasint" jsonschema:"description=Canonical text encoding of the value"`
}

// NewCell returns a Cell for fieldID.
func NewCell(fieldID, data string) Cell {
	return Cell{FieldID: fieldID, Data: data}
}

// Row is one record. BlockID is a back-reference to the owning block.
//
// Cells holds at most one Cell per field ID. A missing key means no value is
// set for that field, which differs from an empty value.
type Row struct {
	ID      string          `json:"id" cbor:"1,keyasint" jsonschema:"description=Unique row identifier"`
	BlockID string          `json:"block_id" cbor:"2,keyasint" jsonschema:"description=Owning block identifier"`
	Cells   map[string]Cell `json:"cell_by_field_id" cbor:"3,keyasint" jsonschema:"description=Cells keyed by field ID"`
	Height  int32           `json:"height" cbor:"4,keyasint" jsonschema:"description=Display height"`
	Visible bool            `json:"visibility" cbor:"5,keyasint" jsonschema:"description=Whether the row is shown"`
}

// NewRow returns a visible, empty row of default height in blockID.
func NewRow(ids IDGenerator, blockID string) *Row {
	return &Row{
		ID:      ids.NewID(),
		BlockID: blockID,
		Cells:   map[string]Cell{},
		Height:  DefaultRowHeight,
		Visible: true,
	}
}

// Clone returns a deep copy of the Row.
func (r *Row) Clone() *Row {
	c := *r
	if r.Cells != nil {
		c.Cells = maps.Clone(r.Cells)
	}
	return &c
}

// GetID returns the Row's ID.
func (r *Row) GetID() string {
	return r.ID
}

// Validate checks that the Row has IDs and that every cell is stored under
// its own field ID.
func (r *Row) Validate() error {
	if r.ID == "" || r.BlockID == "" {
		return errIDRequired
	}
	for k, c := range r.Cells {
		if k != c.FieldID {
			return fmt.Errorf("row %q: %w: %q != %q", r.ID, errCellKeyMismatch, k, c.FieldID)
		}
	}
	return nil
}

// Cell returns the cell for fieldID, if set.
func (r *Row) Cell(fieldID string) (Cell, bool) {
	c, ok := r.Cells[fieldID]
	return c, ok
}

// Apply merges cs into r. Height and visibility are replaced when set; each
// cell in cs is inserted or replaced, and cells not mentioned are kept.
func (r *Row) Apply(cs *RowChangeset) {
	if cs.Height != nil {
		r.Height = *cs.Height
	}
	if cs.Visible != nil {
		r.Visible = *cs.Visible
	}
	if len(cs.Cells) == 0 {
		return
	}
	if r.Cells == nil {
		r.Cells = make(map[string]Cell, len(cs.Cells))
	}
	for fieldID, c := range cs.Cells {
		c.FieldID = fieldID
		r.Cells[fieldID] = c
	}
}

// BlockRows is the row collection of one block, in row order.
type BlockRows struct {
	BlockID string `json:"block_id" cbor:"1,keyasint" jsonschema:"description=Block these rows belong to"`
	Rows    []*Row `json:"row_metas" cbor:"2,keyasint" jsonschema:"description=Rows in order"`
}

// Clone returns a deep copy of the BlockRows.
func (b *BlockRows) Clone() *BlockRows {
	c := &BlockRows{BlockID: b.BlockID}
	if b.Rows != nil {
		c.Rows = make([]*Row, len(b.Rows))
		for i, r := range b.Rows {
			c.Rows[i] = r.Clone()
		}
	}
	return c
}

// Len returns the number of rows.
func (b *BlockRows) Len() int32 {
	return int32(len(b.Rows))
}

// Row returns the row with id and its offset within the block.
func (b *BlockRows) Row(id string) (*Row, int32, bool) {
	for i, r := range b.Rows {
		if r.ID == id {
			return r, int32(i), true
		}
	}
	return nil, -1, false
}

// AppendRow adds r at the end of the block. r.BlockID is set to the block.
func (b *BlockRows) AppendRow(r *Row) {
	r.BlockID = b.BlockID
	b.Rows = append(b.Rows, r)
}

// ApplyRowChangeset merges cs into the row it targets.
func (b *BlockRows) ApplyRowChangeset(cs *RowChangeset) error {
	r, _, ok := b.Row(cs.RowID)
	if !ok {
		return fmt.Errorf("row %q in block %q: %w", cs.RowID, b.BlockID, ErrNotFound)
	}
	r.Apply(cs)
	return nil
}

// Validate checks every row and that each one references this block.
func (b *BlockRows) Validate() error {
	if b.BlockID == "" {
		return errIDRequired
	}
	seen := make(map[string]struct{}, len(b.Rows))
	for _, r := range b.Rows {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.BlockID != b.BlockID {
			return fmt.Errorf("row %q references block %q, want %q", r.ID, r.BlockID, b.BlockID)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("row %q: %w", r.ID, errDuplicateID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
