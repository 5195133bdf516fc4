// Persists grids as JSONL tables, one directory per grid.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/gridmeta/internal/grid"
	"github.com/maruel/gridmeta/internal/ident"
	"github.com/maruel/gridmeta/internal/jsonldb"
)

const (
	fieldsFile = "fields.jsonl"
	blocksFile = "blocks.jsonl"
	rowsDir    = "rows"
)

// GridStore persists grids under a data directory:
//
//	<data>/<grid_id>/fields.jsonl
//	<data>/<grid_id>/blocks.jsonl
//	<data>/<grid_id>/rows/<block_id>.jsonl
//
// Each grid has its own lock, held across every read and mutation of that
// grid. Different grids are independent.
type GridStore struct {
	dataDir string
	cfg     StoreConfig
	ids     grid.IDGenerator

	mu    sync.Mutex
	grids map[string]*gridHandle
}

// gridHandle holds the open tables of one grid. mu guards all of them.
type gridHandle struct {
	id  string
	dir string

	mu     sync.Mutex
	fields *jsonldb.Table[*grid.Field]
	blocks *jsonldb.Table[*grid.Block]
	rows   map[string]*jsonldb.Table[*grid.Row]
}

// Open loads the configuration of dataDir, creating it with defaults when
// missing, and returns a store using the configured ID scheme.
func Open(dataDir string) (*GridStore, error) {
	cfg, err := LoadStoreConfig(dataDir)
	if err != nil {
		return nil, err
	}
	ids, err := ident.New(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	return NewGridStore(dataDir, cfg, ids)
}

// NewGridStore returns a store rooted at dataDir. ids generates every new
// grid, field, block and row ID.
func NewGridStore(dataDir string, cfg *StoreConfig, ids grid.IDGenerator) (*GridStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &GridStore{
		dataDir: dataDir,
		cfg:     *cfg,
		ids:     ids,
		grids:   make(map[string]*gridHandle),
	}, nil
}

// Config returns the store's configuration.
func (s *GridStore) Config() StoreConfig {
	return s.cfg
}

// IDs returns the generator used for every new grid, field, block and row ID.
func (s *GridStore) IDs() grid.IDGenerator {
	return s.ids
}

// GridDir returns the directory holding the grid's files.
func (s *GridStore) GridDir(id string) string {
	return filepath.Join(s.dataDir, id)
}

// Invalidate drops the cached tables of a grid so the next access reloads
// them from disk. Use it after the files were changed by another process.
func (s *GridStore) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grids, id)
}

// Create persists a new grid built from bc. A fresh ID is generated when id
// is empty.
func (s *GridStore) Create(ctx context.Context, id string, bc *grid.BuildGridContext) (*grid.Grid, error) {
	if id == "" {
		id = s.ids.NewID()
	}
	if err := checkName(id); err != nil {
		return nil, err
	}
	g, err := bc.Grid(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid %q: %w", id, err)
	}
	if err := checkName(bc.Block.ID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dir := s.GridDir(id)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("grid %q: %w", id, ErrGridExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat grid %q: %w", id, err)
	}

	h, err := writeGrid(id, dir, g, bc.BlockRows)
	if err != nil {
		// A partial directory would make the ID unusable: Create reports it as
		// existing while Load does not find it.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.WarnContext(ctx, "storage: failed to clean up grid", "grid", id, "err", rmErr)
		}
		return nil, err
	}
	s.grids[id] = h
	slog.InfoContext(ctx, "storage: grid created", "grid", id, "fields", len(g.Fields), "rows", g.RowCount())
	return g.Clone(), nil
}

// Load returns a snapshot of the grid.
func (s *GridStore) Load(ctx context.Context, id string) (*grid.Grid, error) {
	h, err := s.handle(id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gridLocked(), nil
}

// List returns the IDs of all grids in the data directory, sorted.
func (s *GridStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list grids: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, e.Name(), blocksFile)); err != nil {
			slog.DebugContext(ctx, "storage: skipping directory", "dir", e.Name(), "err", err)
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// Rows returns the rows of one block in order.
func (s *GridStore) Rows(ctx context.Context, gridID, blockID string) (*grid.BlockRows, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.blocks.Get(blockID); !ok {
		return nil, fmt.Errorf("block %q in grid %q: %w", blockID, gridID, grid.ErrNotFound)
	}
	return h.blockRowsLocked(blockID)
}

// LocateRow returns the block holding rowID and the row's global index.
func (s *GridStore) LocateRow(ctx context.Context, gridID, rowID string) (string, int32, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return "", -1, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b, _, offset, err := h.findRowLocked(rowID)
	if err != nil {
		return "", -1, err
	}
	return b.ID, b.StartRowIndex + offset, nil
}

// CreateField appends a new field at the end of the display order.
func (s *GridStore) CreateField(ctx context.Context, gridID, name, description string, t grid.FieldType) (*grid.Field, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	f := grid.NewField(s.ids, name, description, t)
	f.Width = s.cfg.DefaultFieldWidth
	if err := h.fields.Append(f); err != nil {
		return nil, fmt.Errorf("failed to create field in grid %q: %w", gridID, err)
	}
	slog.DebugContext(ctx, "storage: field created", "grid", gridID, "field", f.ID, "type", f.Type)
	return f.Clone(), nil
}

// CreateBlock appends a new empty block at the end of the row order.
func (s *GridStore) CreateBlock(ctx context.Context, gridID string) (*grid.Block, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.gridLocked()
	b := grid.NewBlock(s.ids)
	if err := checkName(b.ID); err != nil {
		return nil, err
	}
	if err := g.AddBlock(b); err != nil {
		return nil, err
	}
	if err := h.blocks.Append(b); err != nil {
		return nil, fmt.Errorf("failed to create block in grid %q: %w", gridID, err)
	}
	slog.DebugContext(ctx, "storage: block created", "grid", gridID, "block", b.ID, "start", b.StartRowIndex)
	return b.Clone(), nil
}

// CreateRow appends a new empty row to the last block and updates that
// block's row count. Offsets are recomputed when the configuration asks for
// it.
func (s *GridStore) CreateRow(ctx context.Context, gridID string) (*grid.Row, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	last, ok := h.blocks.Last()
	if !ok {
		return nil, fmt.Errorf("grid %q has no block: %w", gridID, grid.ErrNotFound)
	}
	rows, err := h.rowsTable(last.ID)
	if err != nil {
		return nil, err
	}
	r := grid.NewRow(s.ids, last.ID)
	r.Height = s.cfg.DefaultRowHeight
	if err := rows.Append(r); err != nil {
		return nil, fmt.Errorf("failed to create row in grid %q: %w", gridID, err)
	}
	cs := grid.BlockChangesetFromRowCount(last.ID, int32(rows.Len())) //nolint:gosec // G115: row counts fit in int32
	if err := h.applyBlockLocked(cs, s.cfg.AutoRecomputeOffsets); err != nil {
		// Remove the row so the block's count keeps matching its rows.
		if delErr := rows.Delete(r.ID); delErr != nil {
			slog.ErrorContext(ctx, "storage: failed to roll back row", "grid", gridID, "block", last.ID, "row", r.ID, "err", delErr)
		}
		return nil, fmt.Errorf("failed to update block %q after row append: %w", last.ID, err)
	}
	slog.DebugContext(ctx, "storage: row created", "grid", gridID, "block", last.ID, "row", r.ID)
	return r.Clone(), nil
}

// ApplyFieldChangeset applies cs to one field of the grid.
func (s *GridStore) ApplyFieldChangeset(ctx context.Context, gridID string, cs *grid.FieldChangeset) (*grid.Field, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.gridLocked()
	if err := g.ApplyFieldChangeset(cs); err != nil {
		return nil, err
	}
	updated, _ := g.Field(cs.FieldID)
	f, err := h.fields.Modify(cs.FieldID, func(f *grid.Field) error {
		*f = *updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update field %q: %w", cs.FieldID, err)
	}
	slog.DebugContext(ctx, "storage: field updated", "grid", gridID, "field", cs.FieldID)
	return f, nil
}

// ApplyRowChangeset merges cs into the row it targets, whichever block holds
// it.
func (s *GridStore) ApplyRowChangeset(ctx context.Context, gridID string, cs *grid.RowChangeset) (*grid.Row, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, err := h.applyRowLocked(cs)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "storage: row updated", "grid", gridID, "row", cs.RowID, "cells", len(cs.Cells))
	return r, nil
}

// ApplyCellChangeset lifts cs into a row changeset and applies it. The field
// must exist in the grid.
func (s *GridStore) ApplyCellChangeset(ctx context.Context, cs *grid.CellChangeset) (*grid.Row, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	h, err := s.handle(cs.GridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fields.Get(cs.FieldID); !ok {
		return nil, fmt.Errorf("field %q in grid %q: %w", cs.FieldID, cs.GridID, grid.ErrNotFound)
	}
	r, err := h.applyRowLocked(cs.RowChangeset())
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "storage: cell updated", "grid", cs.GridID, "row", cs.RowID, "field", cs.FieldID, "has_data", cs.Data != nil)
	return r, nil
}

// ApplyBlockChangeset applies cs to one block. When cs changes the row count
// and the configuration asks for it, offsets are recomputed.
func (s *GridStore) ApplyBlockChangeset(ctx context.Context, gridID string, cs *grid.BlockChangeset) (*grid.Block, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.applyBlockLocked(cs, s.cfg.AutoRecomputeOffsets && cs.RowCount != nil); err != nil {
		return nil, err
	}
	b, _ := h.blocks.Get(cs.BlockID)
	slog.DebugContext(ctx, "storage: block updated", "grid", gridID, "block", cs.BlockID, "start", b.StartRowIndex, "count", b.RowCount)
	return b, nil
}

// RecomputeOffsets restores contiguous global row numbering and returns the
// updated grid.
func (s *GridStore) RecomputeOffsets(ctx context.Context, gridID string) (*grid.Grid, error) {
	h, err := s.handle(gridID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.gridLocked()
	if g.CheckOffsets() == nil {
		return g, nil
	}
	g.RecomputeOffsets()
	if err := h.blocks.Replace(g.Blocks); err != nil {
		return nil, fmt.Errorf("failed to write offsets of grid %q: %w", gridID, err)
	}
	slog.InfoContext(ctx, "storage: offsets recomputed", "grid", gridID, "blocks", len(g.Blocks))
	return g, nil
}

func (s *GridStore) handle(id string) (*gridHandle, error) {
	if id == "" {
		return nil, fmt.Errorf("empty grid ID: %w", grid.ErrNotFound)
	}
	if err := checkName(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.grids[id]; ok {
		return h, nil
	}
	dir := s.GridDir(id)
	if _, err := os.Stat(filepath.Join(dir, blocksFile)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("grid %q: %w", id, grid.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat grid %q: %w", id, err)
	}
	h, err := openGrid(id, dir)
	if err != nil {
		return nil, err
	}
	s.grids[id] = h
	return h, nil
}

// writeGrid creates the tables of a new grid.
func writeGrid(id, dir string, g *grid.Grid, br *grid.BlockRows) (*gridHandle, error) {
	h, err := openGrid(id, dir)
	if err != nil {
		return nil, err
	}
	if err := h.fields.Replace(g.Fields); err != nil {
		return nil, fmt.Errorf("failed to write fields of grid %q: %w", id, err)
	}
	rows, err := h.rowsTable(br.BlockID)
	if err != nil {
		return nil, err
	}
	if err := rows.Replace(br.Rows); err != nil {
		return nil, fmt.Errorf("failed to write rows of grid %q: %w", id, err)
	}
	// blocks.jsonl marks the grid as complete, so it is written last.
	if err := h.blocks.Replace(g.Blocks); err != nil {
		return nil, fmt.Errorf("failed to write blocks of grid %q: %w", id, err)
	}
	return h, nil
}

func openGrid(id, dir string) (*gridHandle, error) {
	fields, err := jsonldb.NewTable[*grid.Field](filepath.Join(dir, fieldsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open fields of grid %q: %w", id, err)
	}
	blocks, err := jsonldb.NewTable[*grid.Block](filepath.Join(dir, blocksFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open blocks of grid %q: %w", id, err)
	}
	return &gridHandle{
		id:     id,
		dir:    dir,
		fields: fields,
		blocks: blocks,
		rows:   make(map[string]*jsonldb.Table[*grid.Row]),
	}, nil
}

// gridLocked returns a snapshot of the grid aggregate.
func (h *gridHandle) gridLocked() *grid.Grid {
	return &grid.Grid{
		ID:     h.id,
		Fields: slices.Collect(h.fields.All()),
		Blocks: slices.Collect(h.blocks.All()),
	}
}

// rowsTable returns the row table of blockID, opening it on first use.
func (h *gridHandle) rowsTable(blockID string) (*jsonldb.Table[*grid.Row], error) {
	if t, ok := h.rows[blockID]; ok {
		return t, nil
	}
	if err := checkName(blockID); err != nil {
		return nil, err
	}
	t, err := jsonldb.NewTable[*grid.Row](filepath.Join(h.dir, rowsDir, blockID+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to open rows of block %q: %w", blockID, err)
	}
	h.rows[blockID] = t
	return t, nil
}

func (h *gridHandle) blockRowsLocked(blockID string) (*grid.BlockRows, error) {
	t, err := h.rowsTable(blockID)
	if err != nil {
		return nil, err
	}
	return &grid.BlockRows{BlockID: blockID, Rows: slices.Collect(t.All())}, nil
}

// findRowLocked returns the block holding rowID, its row table and the row's
// offset within the block.
func (h *gridHandle) findRowLocked(rowID string) (*grid.Block, *jsonldb.Table[*grid.Row], int32, error) {
	for b := range h.blocks.All() {
		br, err := h.blockRowsLocked(b.ID)
		if err != nil {
			return nil, nil, -1, err
		}
		if _, offset, ok := br.Row(rowID); ok {
			return b, h.rows[b.ID], offset, nil
		}
	}
	return nil, nil, -1, fmt.Errorf("row %q in grid %q: %w", rowID, h.id, grid.ErrNotFound)
}

func (h *gridHandle) applyRowLocked(cs *grid.RowChangeset) (*grid.Row, error) {
	b, t, _, err := h.findRowLocked(cs.RowID)
	if err != nil {
		return nil, err
	}
	br := &grid.BlockRows{BlockID: b.ID, Rows: slices.Collect(t.All())}
	if err := br.ApplyRowChangeset(cs); err != nil {
		return nil, err
	}
	updated, _, _ := br.Row(cs.RowID)
	r, err := t.Modify(cs.RowID, func(r *grid.Row) error {
		*r = *updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update row %q: %w", cs.RowID, err)
	}
	return r, nil
}

// applyBlockLocked applies cs through the grid aggregate and persists the
// blocks. With recompute, every block's offset is rewritten too.
func (h *gridHandle) applyBlockLocked(cs *grid.BlockChangeset, recompute bool) error {
	g := h.gridLocked()
	if err := g.ApplyBlockChangeset(cs); err != nil {
		return err
	}
	if recompute {
		g.RecomputeOffsets()
		if err := h.blocks.Replace(g.Blocks); err != nil {
			return fmt.Errorf("failed to write blocks of grid %q: %w", h.id, err)
		}
		return nil
	}
	updated, _ := g.Block(cs.BlockID)
	if _, err := h.blocks.Modify(cs.BlockID, func(b *grid.Block) error {
		*b = *updated
		return nil
	}); err != nil {
		return fmt.Errorf("failed to update block %q: %w", cs.BlockID, err)
	}
	return nil
}

// checkName rejects IDs that cannot be used as a single path element.
func checkName(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", errInvalidName, id)
	}
	return nil
}
