// File path: internal/ledger/config.go
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite catalog connection pool.
type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		Path:            filepath.Join("data", "catalog.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    8,
		ConnMaxLifetime: 15 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		BusyTimeout:     5 * time.Second,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_PATH")); value != "" {
		cfg.Path = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_MAX_OPEN_CONNS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_CATALOG_MAX_OPEN_CONNS: %w", err)
		}
		if parsed > 0 {
			cfg.MaxOpenConns = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_MAX_IDLE_CONNS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_CATALOG_MAX_IDLE_CONNS: %w", err)
		}
		if parsed > 0 {
			cfg.MaxIdleConns = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_BUSY_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_CATALOG_BUSY_TIMEOUT: %w", err)
		}
		if dur > 0 {
			cfg.BusyTimeout = dur
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_CONN_MAX_LIFETIME")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_CATALOG_CONN_MAX_LIFETIME: %w", err)
		}
		if dur > 0 {
			cfg.ConnMaxLifetime = dur
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_CATALOG_CONN_MAX_IDLE_TIME")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_CATALOG_CONN_MAX_IDLE_TIME: %w", err)
		}
		if dur > 0 {
			cfg.ConnMaxIdleTime = dur
		}
	}
	return cfg, nil
}
