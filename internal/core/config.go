// File path: internal/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls construction of the core and its background tasks.
type Config struct {
	StorageRoot string
	CatalogPath string

	PollInterval time.Duration
	PollTimeout  time.Duration

	WorkerEnabled      bool
	WorkerScanInterval time.Duration
	WorkerPoolSize     int
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		StorageRoot:        filepath.Join("data", "files"),
		CatalogPath:        filepath.Join("data", "catalog.db"),
		PollInterval:       5 * time.Second,
		PollTimeout:        10 * time.Second,
		WorkerEnabled:      false,
		WorkerScanInterval: 2 * time.Second,
		WorkerPoolSize:     4,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("KBCORE_STORAGE_ROOT")); value != "" {
		cfg.StorageRoot = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_PATH")); value != "" {
		cfg.CatalogPath = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_POLL_INTERVAL")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = dur
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_POLL_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_POLL_TIMEOUT: %w", err)
		}
		cfg.PollTimeout = dur
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_LOCAL_WORKER")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_LOCAL_WORKER: %w", err)
		}
		cfg.WorkerEnabled = parsed
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_WORKER_SCAN_INTERVAL")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_WORKER_SCAN_INTERVAL: %w", err)
		}
		cfg.WorkerScanInterval = dur
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_WORKER_POOL_SIZE")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_WORKER_POOL_SIZE: %w", err)
		}
		if parsed > 0 {
			cfg.WorkerPoolSize = parsed
		}
	}
	return cfg, nil
}
