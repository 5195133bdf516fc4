package ident

import (
	"testing"

	"github.com/google/uuid"
	"github.com/maruel/gridmeta/internal/grid"
)

func TestGenerators(t *testing.T) {
	tests := []struct {
		name string
		gen  grid.IDGenerator
	}{
		{"ksid", KSID{}},
		{"uuid", UUID{}},
		{"sequence", &Sequence{Prefix: "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for range 1000 {
				id := tt.gen.NewID()
				if id == "" {
					t.Fatal("NewID returned empty string")
				}
				if seen[id] {
					t.Fatalf("NewID returned duplicate %q", id)
				}
				seen[id] = true
			}
		})
	}
}

func TestUUIDFormat(t *testing.T) {
	id := UUID{}.NewID()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) failed: %v", id, err)
	}
	if u.Version() != 4 {
		t.Errorf("version = %d, want 4", u.Version())
	}
}

func TestSequence(t *testing.T) {
	s := &Sequence{Prefix: "f"}
	for _, want := range []string{"f1", "f2", "f3"} {
		if got := s.NewID(); got != want {
			t.Errorf("NewID() = %q, want %q", got, want)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		scheme  Scheme
		want    grid.IDGenerator
		wantErr bool
	}{
		{"", KSID{}, false},
		{SchemeKSID, KSID{}, false},
		{SchemeUUID, UUID{}, false},
		{"snowflake", nil, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			got, err := New(tt.scheme)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.scheme, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("New(%q) = %#v, want %#v", tt.scheme, got, tt.want)
			}
		})
	}
}
