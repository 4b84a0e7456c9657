// File path: internal/core/core.go

// Package core wires the persistent stores and background tasks together and
// exposes convenience accessors for the API layer.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatforge/kbcore/internal/build"
	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/embed"
	"github.com/chatforge/kbcore/internal/importer"
	"github.com/chatforge/kbcore/internal/index"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/poll"
	"github.com/chatforge/kbcore/internal/purge"
	"github.com/chatforge/kbcore/internal/stats"
	"github.com/chatforge/kbcore/internal/storage"
	"github.com/chatforge/kbcore/internal/worker"
)

type closer interface {
	Close() error
}

// Option overrides a collaborator during construction, mainly for tests.
type Option func(*options)

type options struct {
	index index.Service
}

// WithIndex injects a pre-built index service.
func WithIndex(svc index.Service) Option {
	return func(o *options) {
		o.index = svc
	}
}

// Core owns the assembled subsystem.
type Core struct {
	cfg Config

	files    *storage.Store
	catalog  *ledger.Store
	idx      index.Service
	poller   *poll.Poller
	builds   *build.Orchestrator
	usage    *stats.Aggregator
	importer *importer.Importer
	purger   *purge.Coordinator
	worker   *worker.Worker

	workerCancel context.CancelFunc
	closers      []closer
}

// New constructs a Core from the provided configuration.
func New(ctx context.Context, cfg Config, opts ...Option) (*Core, error) {
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	files, err := storage.NewStore(storage.Config{Root: cfg.StorageRoot})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	catalog, err := ledger.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	var idx index.Service
	switch {
	case settings.index != nil:
		idx = settings.index
	case index.Enabled():
		client, err := index.NewFromEnv(ctx)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("init index client: %w", err)
		}
		idx = client
	}

	poller, err := poll.New(catalog, poll.WithInterval(cfg.PollInterval), poll.WithTimeout(cfg.PollTimeout))
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init poller: %w", err)
	}
	builds, err := build.NewOrchestrator(catalog)
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	usage, err := stats.NewAggregator(files, catalog)
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init aggregator: %w", err)
	}
	imp, err := importer.New(files, catalog, catalog)
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init importer: %w", err)
	}

	c := &Core{
		cfg:      cfg,
		files:    files,
		catalog:  catalog,
		idx:      idx,
		poller:   poller,
		builds:   builds,
		usage:    usage,
		importer: imp,
	}
	c.closers = append(c.closers, catalog)
	if cl, ok := idx.(closer); ok && cl != nil {
		c.closers = append(c.closers, cl)
	}

	if idx != nil {
		purger, err := purge.NewCoordinator(idx, catalog)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init purge coordinator: %w", err)
		}
		c.purger = purger
	}

	if cfg.WorkerEnabled {
		wrk, err := worker.New(catalog, files, idx, embed.NewProvider(),
			worker.WithScanInterval(cfg.WorkerScanInterval),
			worker.WithPoolSize(cfg.WorkerPoolSize))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init worker: %w", err)
		}
		workerCtx, cancel := context.WithCancel(context.Background())
		c.worker = wrk
		c.workerCancel = cancel
		go wrk.Run(workerCtx)
		common.Logger().Info("core: bundled worker enabled")
	}
	return c, nil
}

// Files exposes the storage gateway.
func (c *Core) Files() *storage.Store {
	if c == nil {
		return nil
	}
	return c.files
}

// Catalog exposes the SQLite-backed ledger.
func (c *Core) Catalog() *ledger.Store {
	if c == nil {
		return nil
	}
	return c.catalog
}

// Index exposes the optional external knowledge index.
func (c *Core) Index() index.Service {
	if c == nil {
		return nil
	}
	return c.idx
}

// Poller exposes the background refresh task.
func (c *Core) Poller() *poll.Poller {
	if c == nil {
		return nil
	}
	return c.poller
}

// Builds exposes the build orchestrator.
func (c *Core) Builds() *build.Orchestrator {
	if c == nil {
		return nil
	}
	return c.builds
}

// Usage exposes the stats aggregator.
func (c *Core) Usage() *stats.Aggregator {
	if c == nil {
		return nil
	}
	return c.usage
}

// Importer exposes the bulk importer.
func (c *Core) Importer() *importer.Importer {
	if c == nil {
		return nil
	}
	return c.importer
}

// Purger exposes the purge coordinator, nil when no index is configured.
func (c *Core) Purger() *purge.Coordinator {
	if c == nil {
		return nil
	}
	return c.purger
}

// Close stops background tasks and releases resources.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.poller != nil {
		c.poller.Stop()
	}
	if c.workerCancel != nil {
		c.workerCancel()
	}
	if c.worker != nil {
		c.worker.Close()
	}
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if cl == nil {
			continue
		}
		if cerr := cl.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
