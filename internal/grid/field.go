package grid

// DefaultFieldWidth is the display width given to new fields.
const DefaultFieldWidth int32 = 150

// IDGenerator produces globally unique identifiers for grids, blocks, fields
// and rows.
type IDGenerator interface {
	NewID() string
}

// Field describes a column: its type, display attributes and type-specific
// options.
type Field struct {
	ID          string    `json:"id" cbor:"1,keyasint" jsonschema:"description=Unique field identifier"`
	Name        string    `json:"name" cbor:"2,keyasint" jsonschema:"description=Field name (column header)"`
	Description string    `json:"desc" cbor:"3,keyasint" jsonschema:"description=Free-form field description"`
	Type        FieldType `json:"field_type" cbor:"4,keyasint" jsonschema:"description=Field type tag (0-5)"`
	Frozen      bool      `json:"frozen" cbor:"5,keyasint" jsonschema:"description=Whether the column is pinned"`
	Visible     bool      `json:"visibility" cbor:"6,keyasint" jsonschema:"description=Whether the column is shown"`
	Width       int32     `json:"width" cbor:"7,keyasint" jsonschema:"description=Display width"`

	// TypeOptions is interpreted per Type (e.g. select option lists). It is
	// carried here without being parsed.
	TypeOptions string `json:"type_options" cbor:"8,keyasint" jsonschema:"description=Opaque type-specific options"`
}

// NewField returns a visible, unfrozen field of default width with a fresh ID.
func NewField(ids IDGenerator, name, description string, t FieldType) *Field {
	return &Field{
		ID:          ids.NewID(),
		Name:        name,
		Description: description,
		Type:        t,
		Visible:     true,
		Width:       DefaultFieldWidth,
	}
}

// Clone returns a copy of the Field.
func (f *Field) Clone() *Field {
	c := *f
	return &c
}

// GetID returns the Field's ID.
func (f *Field) GetID() string {
	return f.ID
}

// Validate checks that the Field has an ID and a known type.
func (f *Field) Validate() error {
	if f.ID == "" {
		return errIDRequired
	}
	return f.Type.Validate()
}

// Apply copies every attribute set in cs onto f. The changeset's FieldID is
// not checked; lookup is the caller's job (see Grid.ApplyFieldChangeset).
//
// Width and TypeOptions are applied as given.
func (f *Field) Apply(cs *FieldChangeset) {
	if cs.Name != nil {
		f.Name = *cs.Name
	}
	if cs.Description != nil {
		f.Description = *cs.Description
	}
	if cs.Type != nil {
		f.Type = *cs.Type
	}
	if cs.Frozen != nil {
		f.Frozen = *cs.Frozen
	}
	if cs.Visible != nil {
		f.Visible = *cs.Visible
	}
	if cs.Width != nil {
		f.Width = *cs.Width
	}
	if cs.TypeOptions != nil {
		f.TypeOptions = *cs.TypeOptions
	}
}
