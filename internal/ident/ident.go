// Package ident provides identifier generators for grid entities.
package ident

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/maruel/gridmeta/internal/grid"
	"github.com/maruel/ksid"
)

// KSID generates time-sortable identifiers.
type KSID struct{}

// NewID implements grid.IDGenerator.
func (KSID) NewID() string {
	return ksid.NewID().String()
}

// UUID generates random (version 4) UUIDs.
type UUID struct{}

// NewID implements grid.IDGenerator.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Sequence generates Prefix1, Prefix2, ... Useful for deterministic tests.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewID implements grid.IDGenerator.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.Prefix + strconv.Itoa(s.n)
}

// Scheme names an identifier generator in configuration.
type Scheme string

const (
	// SchemeKSID selects KSID.
	SchemeKSID Scheme = "ksid"
	// SchemeUUID selects UUID.
	SchemeUUID Scheme = "uuid"
)

// New returns the generator for scheme.
func New(scheme Scheme) (grid.IDGenerator, error) {
	switch scheme {
	case SchemeKSID, "":
		return KSID{}, nil
	case SchemeUUID:
		return UUID{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}

var (
	_ grid.IDGenerator = KSID{}
	_ grid.IDGenerator = UUID{}
	_ grid.IDGenerator = (*Sequence)(nil)
)
