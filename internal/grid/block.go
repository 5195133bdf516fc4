package grid

// Block is a contiguous run of rows in a Grid. Only its offset and count are
// recorded here; the rows live in a BlockRows collection with the same ID.
type Block struct {
	ID            string `json:"block_id" cbor:"1,keyasint" jsonschema:"description=Unique block identifier"`
	StartRowIndex int32  `json:"start_row_index" cbor:"2,keyasint" jsonschema:"description=Global index of the block's first row"`
	RowCount      int32  `json:"row_count" cbor:"3,keyasint" jsonschema:"description=Number of rows in the block"`
}

// NewBlock returns an empty block with a fresh ID.
func NewBlock(ids IDGenerator) *Block {
	return &Block{ID: ids.NewID()}
}

// Clone returns a copy of the Block.
func (b *Block) Clone() *Block {
	c := *b
	return &c
}

// GetID returns the Block's ID.
func (b *Block) GetID() string {
	return b.ID
}

// Validate checks that the Block has an ID and a non-negative count.
func (b *Block) Validate() error {
	if b.ID == "" {
		return errIDRequired
	}
	if b.RowCount < 0 {
		return errNegativeCount
	}
	return nil
}

// Len returns the number of rows in the block.
func (b *Block) Len() int32 {
	return b.RowCount
}

// IsEmpty reports whether the block holds no rows. Empty blocks still occupy
// their slot in the Grid.
func (b *Block) IsEmpty() bool {
	return b.RowCount == 0
}

// Apply copies the attributes set in cs onto b. Sibling offsets are not
// touched; see Grid.RecomputeOffsets.
func (b *Block) Apply(cs *BlockChangeset) {
	if cs.StartRowIndex != nil {
		b.StartRowIndex = *cs.StartRowIndex
	}
	if cs.RowCount != nil {
		b.RowCount = *cs.RowCount
	}
}

// RecomputeOffsets sets each block's StartRowIndex to the sum of the row
// counts of the blocks before it.
func RecomputeOffsets(blocks []*Block) {
	var start int32
	for _, b := range blocks {
		b.StartRowIndex = start
		start += b.RowCount
	}
}
