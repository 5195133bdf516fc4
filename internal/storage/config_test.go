package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/gridmeta/internal/ident"
)

func TestLoadStoreConfig(t *testing.T) {
	t.Run("creates defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadStoreConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg != DefaultStoreConfig() {
			t.Errorf("cfg = %+v, want %+v", *cfg, DefaultStoreConfig())
		}
		data, err := os.ReadFile(filepath.Join(dir, configFile))
		if err != nil {
			t.Fatalf("config file not written: %v", err)
		}
		var onDisk StoreConfig
		if err := json.Unmarshal(data, &onDisk); err != nil {
			t.Fatal(err)
		}
		if onDisk != *cfg {
			t.Errorf("on disk = %+v, want %+v", onDisk, *cfg)
		}
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, configFile), []byte(`{"id_scheme":"uuid"}`), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadStoreConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.IDScheme != ident.SchemeUUID {
			t.Errorf("IDScheme = %q, want uuid", cfg.IDScheme)
		}
		if !cfg.AutoRecomputeOffsets || cfg.DefaultRowHeight != 36 || cfg.DefaultFieldWidth != 150 {
			t.Errorf("defaults lost: %+v", cfg)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"not json", "{"},
			{"unknown scheme", `{"id_scheme":"snowflake"}`},
			{"zero width", `{"default_field_width":0}`},
			{"negative height", `{"default_row_height":-1}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, configFile), []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
				if _, err := LoadStoreConfig(dir); err == nil {
					t.Error("LoadStoreConfig succeeded")
				}
			})
		}
	})
}

func TestStoreConfig_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := DefaultStoreConfig()
	cfg.AutoRecomputeOffsets = false
	cfg.DefaultRowHeight = 20
	if err := cfg.Save(dir); err != nil {
		t.Fatal(err)
	}
	got, err := LoadStoreConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if *got != cfg {
		t.Errorf("reloaded = %+v, want %+v", *got, cfg)
	}

	cfg.IDScheme = "bogus"
	if err := cfg.Save(dir); err == nil {
		t.Error("Save accepted invalid config")
	}
}
