// Partial-update records. A nil attribute means "leave unchanged".

package grid

// FieldChangeset names the attributes to change on one field.
type FieldChangeset struct {
	FieldID     string     `json:"field_id" cbor:"1,keyasint"`
	Name        *string    `json:"name,omitempty" cbor:"2,keyasint,omitempty"`
	Description *string    `json:"desc,omitempty" cbor:"3,keyasint,omitempty"`
	Type        *FieldType `json:"field_type,omitempty" cbor:"4,keyasint,omitempty"`
	Frozen      *bool      `json:"frozen,omitempty" cbor:"5,keyasint,omitempty"`
	Visible     *bool      `json:"visibility,omitempty" cbor:"6,keyasint,omitempty"`
	Width       *int32     `json:"width,omitempty" cbor:"7,keyasint,omitempty"`
	TypeOptions *string    `json:"type_options,omitempty" cbor:"8,keyasint,omitempty"`
}

// Validate checks that the changeset names a field and, if it sets a type,
// that the type is known.
func (cs *FieldChangeset) Validate() error {
	if cs.FieldID == "" {
		return errTargetRequired
	}
	if cs.Type != nil {
		return cs.Type.Validate()
	}
	return nil
}

// IsEmpty reports whether applying cs would change nothing.
func (cs *FieldChangeset) IsEmpty() bool {
	return cs.Name == nil && cs.Description == nil && cs.Type == nil && cs.Frozen == nil &&
		cs.Visible == nil && cs.Width == nil && cs.TypeOptions == nil
}

// RowChangeset names the attributes and cells to change on one row.
//
// Cells is merged into the row's cell map: entries are inserted or replaced,
// other cells are kept.
type RowChangeset struct {
	RowID   string          `json:"row_id" cbor:"1,keyasint"`
	Height  *int32          `json:"height,omitempty" cbor:"2,keyasint,omitempty"`
	Visible *bool           `json:"visibility,omitempty" cbor:"3,keyasint,omitempty"`
	Cells   map[string]Cell `json:"cell_by_field_id,omitempty" cbor:"4,keyasint,omitempty"`
}

// Validate checks that the changeset names a row.
func (cs *RowChangeset) Validate() error {
	if cs.RowID == "" {
		return errTargetRequired
	}
	return nil
}

// IsEmpty reports whether applying cs would change nothing.
func (cs *RowChangeset) IsEmpty() bool {
	return cs.Height == nil && cs.Visible == nil && len(cs.Cells) == 0
}

// CellChangeset is the fine-grained form of a one-cell edit.
type CellChangeset struct {
	GridID  string  `json:"grid_id" cbor:"1,keyasint"`
	RowID   string  `json:"row_id" cbor:"2,keyasint"`
	FieldID string  `json:"field_id" cbor:"3,keyasint"`
	Data    *string `json:"data,omitempty" cbor:"4,keyasint,omitempty"`
}

// Validate checks that the changeset names a row and a field.
func (cs *CellChangeset) Validate() error {
	if cs.RowID == "" || cs.FieldID == "" {
		return errTargetRequired
	}
	return nil
}

// RowChangeset lifts cs into the row changeset every cell edit must go
// through. Height and visibility are left unset. The cell map holds the
// single edited cell when Data is set and is empty otherwise, so a cell
// changeset without data is a no-op row patch.
func (cs *CellChangeset) RowChangeset() *RowChangeset {
	cells := make(map[string]Cell, 1)
	if cs.Data != nil {
		cells[cs.FieldID] = Cell{FieldID: cs.FieldID, Data: *cs.Data}
	}
	return &RowChangeset{RowID: cs.RowID, Cells: cells}
}

// BlockChangeset names the attributes to change on one block. Both are set
// explicitly, never inferred.
type BlockChangeset struct {
	BlockID       string `json:"block_id" cbor:"1,keyasint"`
	StartRowIndex *int32 `json:"start_row_index,omitempty" cbor:"2,keyasint,omitempty"`
	RowCount      *int32 `json:"row_count,omitempty" cbor:"3,keyasint,omitempty"`
}

// BlockChangesetFromRowCount returns a changeset that only sets the row count,
// the common case after an append or delete. The caller recomputes offsets.
func BlockChangesetFromRowCount(blockID string, rowCount int32) *BlockChangeset {
	return &BlockChangeset{BlockID: blockID, RowCount: &rowCount}
}

// Validate checks that the changeset names a block and does not set a
// negative row count.
func (cs *BlockChangeset) Validate() error {
	if cs.BlockID == "" {
		return errTargetRequired
	}
	if cs.RowCount != nil && *cs.RowCount < 0 {
		return errNegativeCount
	}
	return nil
}
