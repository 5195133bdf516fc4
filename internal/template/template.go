// Package template parses YAML grid templates into build contexts.
//
// A template lists the initial fields of a grid and, optionally, seed rows
// whose cells are keyed by field name:
//
//	version: 1
//	id: tasks
//	fields:
//	  - name: Title
//	    width: 300
//	    frozen: true
//	  - name: Done
//	    type: Checkbox
//	rows:
//	  - cells: {Title: "Write docs", Done: "No"}
package template

import (
	"fmt"
	"os"

	"github.com/maruel/gridmeta/internal/grid"
	"gopkg.in/yaml.v3"
)

// Template defines the structure of a grid template file.
type Template struct {
	Version int           `yaml:"version"`
	ID      string        `yaml:"id,omitempty"`
	Fields  []FieldConfig `yaml:"fields"`
	Rows    []RowConfig   `yaml:"rows,omitempty"`
}

// FieldConfig defines one initial field.
type FieldConfig struct {
	Name        string `yaml:"name"`
	Desc        string `yaml:"desc,omitempty"`
	Type        string `yaml:"type,omitempty"` // FieldType display name, RichText if empty
	Width       int32  `yaml:"width,omitempty"`
	Visible     *bool  `yaml:"visible,omitempty"` // nil means visible
	Frozen      bool   `yaml:"frozen,omitempty"`
	TypeOptions string `yaml:"type_options,omitempty"`
}

// RowConfig defines one seed row.
type RowConfig struct {
	Cells   map[string]string `yaml:"cells,omitempty"` // keyed by field name
	Height  int32             `yaml:"height,omitempty"`
	Visible *bool             `yaml:"visible,omitempty"`
}

// ParseFile reads and parses a template from a file.
// The path is provided by the CLI user, so file inclusion is expected.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified template path
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return Parse(data)
}

// Parse parses a template from bytes.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &t, nil
}

// Validate checks that the template is valid.
func (t *Template) Validate() error {
	if t.Version != 1 {
		return fmt.Errorf("unsupported template version: %d", t.Version)
	}
	names := make(map[string]struct{}, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, ok := names[f.Name]; ok {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		names[f.Name] = struct{}{}
		if f.Type != "" {
			if _, err := grid.ParseFieldType(f.Type); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		if f.Width < 0 {
			return fmt.Errorf("field %q: width must be non-negative", f.Name)
		}
	}
	for i := range t.Rows {
		r := &t.Rows[i]
		for name := range r.Cells {
			if _, ok := names[name]; !ok {
				return fmt.Errorf("row %d: unknown field %q", i, name)
			}
		}
		if r.Height < 0 {
			return fmt.Errorf("row %d: height must be non-negative", i)
		}
	}
	return nil
}

// BuildContext returns the build context described by the template. Zero
// widths and heights take the given defaults. Template attributes and cells
// are applied to the new entities through changesets, the same path later
// edits take.
func (t *Template) BuildContext(ids grid.IDGenerator, defaultWidth, defaultHeight int32) (*grid.BuildGridContext, error) {
	bc := grid.NewBuildGridContext(ids)
	byName := make(map[string]string, len(t.Fields))
	for i := range t.Fields {
		cfg := &t.Fields[i]
		ft := grid.RichText
		if cfg.Type != "" {
			var err error
			if ft, err = grid.ParseFieldType(cfg.Type); err != nil {
				return nil, fmt.Errorf("field %q: %w", cfg.Name, err)
			}
		}
		f := bc.AddField(ids, cfg.Name, cfg.Desc, ft)
		cs := &grid.FieldChangeset{
			FieldID:     f.ID,
			Width:       &defaultWidth,
			Visible:     cfg.Visible,
			Frozen:      &cfg.Frozen,
			TypeOptions: &cfg.TypeOptions,
		}
		if cfg.Width != 0 {
			cs.Width = &cfg.Width
		}
		f.Apply(cs)
		byName[cfg.Name] = f.ID
	}

	for i := range t.Rows {
		cfg := &t.Rows[i]
		r := grid.NewRow(ids, bc.Block.ID)
		cs := &grid.RowChangeset{RowID: r.ID, Height: &defaultHeight, Visible: cfg.Visible}
		if cfg.Height != 0 {
			cs.Height = &cfg.Height
		}
		r.Apply(cs)
		for name, data := range cfg.Cells {
			id, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("row %d: unknown field %q", i, name)
			}
			cell := &grid.CellChangeset{RowID: r.ID, FieldID: id, Data: &data}
			r.Apply(cell.RowChangeset())
		}
		bc.BlockRows.AppendRow(r)
	}
	bc.Block.Apply(grid.BlockChangesetFromRowCount(bc.Block.ID, bc.BlockRows.Len()))

	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}
