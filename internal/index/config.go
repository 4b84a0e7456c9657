// File path: internal/index/config.go
package index

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes how to reach the external knowledge-index service.
type Config struct {
	Scheme string
	Host   string
	Port   string
	APIKey string

	Timeout time.Duration

	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPMaxConnsPerHost int
	HTTPIdleConnTimeout time.Duration
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		Scheme:              "http",
		Host:                "localhost",
		Port:                "8000",
		Timeout:             30 * time.Second,
		HTTPMaxIdleConns:    16,
		HTTPMaxIdlePerHost:  8,
		HTTPMaxConnsPerHost: 16,
		HTTPIdleConnTimeout: 90 * time.Second,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_SCHEME")); value != "" {
		cfg.Scheme = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_HOST")); value != "" {
		cfg.Host = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_PORT")); value != "" {
		cfg.Port = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_API_KEY")); value != "" {
		cfg.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_INDEX_TIMEOUT: %w", err)
		}
		cfg.Timeout = dur
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_MAX_IDLE_CONNS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_INDEX_MAX_IDLE_CONNS: %w", err)
		}
		if parsed > 0 {
			cfg.HTTPMaxIdleConns = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_MAX_IDLE_PER_HOST")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_INDEX_MAX_IDLE_PER_HOST: %w", err)
		}
		if parsed > 0 {
			cfg.HTTPMaxIdlePerHost = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_MAX_CONNS_PER_HOST")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_INDEX_MAX_CONNS_PER_HOST: %w", err)
		}
		if parsed > 0 {
			cfg.HTTPMaxConnsPerHost = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KBCORE_INDEX_IDLE_CONN_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse KBCORE_INDEX_IDLE_CONN_TIMEOUT: %w", err)
		}
		cfg.HTTPIdleConnTimeout = dur
	}
	return cfg, nil
}

// Enabled reports whether any index environment variable is set at all; the
// client is optional in development.
func Enabled() bool {
	keys := []string{
		"KBCORE_INDEX_SCHEME",
		"KBCORE_INDEX_HOST",
		"KBCORE_INDEX_PORT",
		"KBCORE_INDEX_API_KEY",
		"KBCORE_INDEX_TIMEOUT",
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
