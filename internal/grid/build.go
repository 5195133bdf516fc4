package grid

import "fmt"

// BuildGridContext is what a grid-creation workflow starts from: the initial
// fields, a single block and that block's (empty) row collection.
type BuildGridContext struct {
	Fields    []*Field   `json:"field_metas" cbor:"1,keyasint" jsonschema:"description=Initial fields"`
	Block     *Block     `json:"block_metas" cbor:"2,keyasint" jsonschema:"description=Initial block"`
	BlockRows *BlockRows `json:"block_meta_data" cbor:"3,keyasint" jsonschema:"description=Rows of the initial block"`
}

// NewBuildGridContext returns a context with no fields and one empty block
// whose row collection shares its ID. A grid never starts with zero blocks.
func NewBuildGridContext(ids IDGenerator) *BuildGridContext {
	b := NewBlock(ids)
	return &BuildGridContext{
		Block:     b,
		BlockRows: &BlockRows{BlockID: b.ID, Rows: []*Row{}},
	}
}

// AddField appends a new field built with NewField and returns it.
func (c *BuildGridContext) AddField(ids IDGenerator, name, description string, t FieldType) *Field {
	f := NewField(ids, name, description, t)
	c.Fields = append(c.Fields, f)
	return f
}

// Validate checks that the block and its row collection agree.
func (c *BuildGridContext) Validate() error {
	if c.Block == nil || c.BlockRows == nil {
		return fmt.Errorf("build context: block is required: %w", errIDRequired)
	}
	if err := c.Block.Validate(); err != nil {
		return err
	}
	if c.BlockRows.BlockID != c.Block.ID {
		return fmt.Errorf("build context: rows reference block %q, want %q", c.BlockRows.BlockID, c.Block.ID)
	}
	if c.Block.RowCount != c.BlockRows.Len() {
		return fmt.Errorf("build context: block counts %d rows, collection has %d", c.Block.RowCount, c.BlockRows.Len())
	}
	for _, f := range c.Fields {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return c.BlockRows.Validate()
}

// Grid returns a new Grid with id built from the context.
func (c *BuildGridContext) Grid(id string) (*Grid, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{ID: id, Fields: make([]*Field, 0, len(c.Fields))}
	for _, f := range c.Fields {
		if err := g.AddField(f.Clone()); err != nil {
			return nil, err
		}
	}
	if err := g.AddBlock(c.Block.Clone()); err != nil {
		return nil, err
	}
	return g, g.Validate()
}
