// File path: cmd/kbcore/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatforge/kbcore/internal/api"
	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/core"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("kbcore: .env file not loaded", "error", err)
	} else {
		logger.Info("kbcore: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	storageRoot := flag.String("storage-root", "", "directory holding tenant source files")
	catalogPath := flag.String("catalog", "", "path to the SQLite catalog database")
	pollInterval := flag.String("poll-interval", "", "interval between build-status polls (e.g. 5s)")
	localWorker := flag.Bool("local-worker", false, "run the bundled build worker instead of an external engine")
	flag.Parse()

	cfg, err := core.LoadConfig()
	if err != nil {
		logger.Error("kbcore: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*storageRoot); trimmed != "" {
		cfg.StorageRoot = trimmed
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		cfg.CatalogPath = trimmed
	}
	if trimmed := strings.TrimSpace(*pollInterval); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("kbcore: invalid poll interval", "value", trimmed, "error", err)
			fmt.Println("poll interval error:", err)
			os.Exit(1)
		}
		cfg.PollInterval = dur
	}
	if *localWorker {
		cfg.WorkerEnabled = true
	}

	logger.Info("kbcore: startup initiated",
		"addr", *addr, "storage", cfg.StorageRoot, "catalog", cfg.CatalogPath, "local_worker", cfg.WorkerEnabled)

	c, err := core.New(ctx, cfg)
	if err != nil {
		logger.Error("kbcore: core initialization failed", "error", err)
		fmt.Println("core error:", err)
		os.Exit(1)
	}
	defer c.Close()

	if idx := c.Index(); idx != nil {
		if idx.Available() {
			logger.Info("kbcore: knowledge index available")
		} else {
			logger.Warn("kbcore: knowledge index unreachable")
		}
	} else {
		logger.Info("kbcore: knowledge index not configured")
	}

	server, err := api.NewServer(c)
	if err != nil {
		logger.Error("kbcore: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("kbcore: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("kbcore: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}
