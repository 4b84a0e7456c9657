// File path: internal/storage/config.go
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// Config controls where tenant source files are kept on disk.
type Config struct {
	Root string
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{Root: filepath.Join("data", "files")}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("KBCORE_STORAGE_ROOT")); value != "" {
		cfg.Root = value
	}
	return cfg
}
