// Manages store configuration stored in store_config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maruel/gridmeta/internal/grid"
	"github.com/maruel/gridmeta/internal/ident"
)

const configFile = "store_config.json"

// StoreConfig stores the settings of one data directory.
// Loaded from store_config.json, created with defaults if missing.
type StoreConfig struct {
	// IDScheme selects the generator for new grid, field, block and row IDs.
	IDScheme ident.Scheme `json:"id_scheme"`

	// AutoRecomputeOffsets makes mutations that change a block's row count
	// recompute every block's start index before returning.
	AutoRecomputeOffsets bool `json:"auto_recompute_offsets"`

	// DefaultFieldWidth is the width given to fields created by the store.
	DefaultFieldWidth int32 `json:"default_field_width"`

	// DefaultRowHeight is the height given to rows created by the store.
	DefaultRowHeight int32 `json:"default_row_height"`
}

// DefaultStoreConfig returns the configuration used for a new data directory.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		IDScheme:             ident.SchemeKSID,
		AutoRecomputeOffsets: true,
		DefaultFieldWidth:    grid.DefaultFieldWidth,
		DefaultRowHeight:     grid.DefaultRowHeight,
	}
}

// Validate checks that the configuration is valid.
func (c *StoreConfig) Validate() error {
	if _, err := ident.New(c.IDScheme); err != nil {
		return fmt.Errorf("id_scheme: %w", err)
	}
	if c.DefaultFieldWidth <= 0 {
		return errors.New("default_field_width must be positive")
	}
	if c.DefaultRowHeight <= 0 {
		return errors.New("default_row_height must be positive")
	}
	return nil
}

// LoadStoreConfig loads configuration from dataDir/store_config.json.
// Creates the file with defaults if it doesn't exist.
func LoadStoreConfig(dataDir string) (*StoreConfig, error) {
	path := filepath.Join(dataDir, configFile)

	cfg := DefaultStoreConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", configFile, err)
		}
		// File doesn't exist, will create with defaults
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	}

	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configFile, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/store_config.json.
func (c *StoreConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, configFile), data, 0o644); err != nil { //nolint:gosec // G306: config holds no secrets
		return fmt.Errorf("failed to write %s: %w", configFile, err)
	}
	return nil
}
