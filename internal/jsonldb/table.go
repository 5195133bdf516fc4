package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

var (
	// ErrNotFound is returned when no row has the requested ID.
	ErrNotFound = errors.New("row not found")
	// ErrDuplicateID is returned when a row with the same ID already exists.
	ErrDuplicateID = errors.New("duplicate row ID")
)

// Row is implemented by every type stored in a Table.
type Row[T any] interface {
	Clone() T
	GetID() string
	Validate() error
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Row[T]] struct {
	path    string
	columns []column

	mu   sync.RWMutex
	rows []T
}

// NewTable creates a new Table and loads all data from the file.
// A missing file is an empty table; it is created on first write.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema for %s: %w", path, err)
	}
	table := &Table[T]{path: path, columns: columns}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	header := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if header {
			header = false
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("failed to unmarshal schema header in %s: %w", t.path, err)
			}
			if err := h.Validate(); err != nil {
				return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row in %s: %w", t.path, err)
		}
		if _, ok := seen[row.GetID()]; ok {
			return fmt.Errorf("row %q in %s: %w", row.GetID(), t.path, ErrDuplicateID)
		}
		seen[row.GetID()] = struct{}{}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}
	if rows == nil {
		rows = []T{}
	}
	t.rows = rows
	return nil
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// All returns an iterator over clones of all rows, in file order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Get returns a clone of the row with id.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexLocked(id); i >= 0 {
		return t.rows[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Last returns a clone of the last row, or false if empty.
func (t *Table[T]) Last() (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		var zero T
		return zero, false
	}
	return t.rows[len(t.rows)-1].Clone(), true
}

// Append validates row, adds it to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexLocked(row.GetID()) >= 0 {
		return fmt.Errorf("row %q: %w", row.GetID(), ErrDuplicateID)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	var buf bytes.Buffer
	if _, err := os.Stat(t.path); os.IsNotExist(err) {
		if err := t.writeHeader(&buf); err != nil {
			return err
		}
	}
	buf.Write(data)
	buf.WriteByte('\n')

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are not secret
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	t.rows = append(t.rows, row.Clone())
	return nil
}

// Modify runs fn on a clone of the row with id while holding the write lock,
// then persists the result. If fn or the write fails, nothing changes.
func (t *Table[T]) Modify(id string, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return zero, fmt.Errorf("row %q: %w", id, ErrNotFound)
	}
	row := t.rows[i].Clone()
	if err := fn(row); err != nil {
		return zero, err
	}
	if err := row.Validate(); err != nil {
		return zero, fmt.Errorf("invalid row: %w", err)
	}
	if row.GetID() != id {
		return zero, fmt.Errorf("row %q: ID cannot change to %q", id, row.GetID())
	}
	rows := make([]T, len(t.rows))
	copy(rows, t.rows)
	rows[i] = row
	if err := t.writeLocked(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	return row.Clone(), nil
}

// Delete removes the row with id and persists the table.
func (t *Table[T]) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("row %q: %w", id, ErrNotFound)
	}
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.writeLocked(rows); err != nil {
		return err
	}
	t.rows = rows
	return nil
}

// Replace validates and persists rows as the full content of the table.
func (t *Table[T]) Replace(rows []T) error {
	seen := make(map[string]struct{}, len(rows))
	owned := make([]T, len(rows))
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row %d: %w", i, err)
		}
		if _, ok := seen[row.GetID()]; ok {
			return fmt.Errorf("row %q: %w", row.GetID(), ErrDuplicateID)
		}
		seen[row.GetID()] = struct{}{}
		owned[i] = row.Clone()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writeLocked(owned); err != nil {
		return err
	}
	t.rows = owned
	return nil
}

func (t *Table[T]) indexLocked(id string) int {
	for i, row := range t.rows {
		if row.GetID() == id {
			return i
		}
	}
	return -1
}

func (t *Table[T]) writeHeader(buf *bytes.Buffer) error {
	data, err := json.Marshal(schemaHeader{Version: currentVersion, Columns: t.columns})
	if err != nil {
		return fmt.Errorf("failed to marshal schema header: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}

// writeLocked atomically rewrites the table file with rows.
func (t *Table[T]) writeLocked(rows []T) error {
	var buf bytes.Buffer
	if err := t.writeHeader(&buf); err != nil {
		return err
	}
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	f, err := os.CreateTemp(filepath.Dir(t.path), ".tmp-"+filepath.Base(t.path))
	if err != nil {
		return fmt.Errorf("failed to create temporary table file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
