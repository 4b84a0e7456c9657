// File path: internal/worker/worker.go

// Package worker is the bundled stand-in for the external build engine. It
// claims requested jobs, walks them through building to a terminal state, and
// pushes chunk embeddings into the knowledge index. Production deployments
// run the real engine instead and leave this disabled; the state transitions
// observed by the rest of the core are identical either way.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/embed"
	"github.com/chatforge/kbcore/internal/index"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/storage"
)

const (
	defaultScanInterval = 2 * time.Second
	defaultPoolSize     = 4
	chunkLineCount      = 40
)

// JobQueue is the ledger slice the worker claims from and reports into.
type JobQueue interface {
	JobsRequested(ctx context.Context) ([]ledger.BuildJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status ledger.Status, errMsg string) (ledger.BuildJob, error)
}

// FileOpener is the storage slice the worker reads documents through.
type FileOpener interface {
	Open(tenantID, fileID string) (io.ReadCloser, storage.SourceFile, error)
}

// Option configures a Worker.
type Option func(*Worker)

// WithScanInterval sets how often the worker looks for requested jobs.
func WithScanInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithPoolSize sets the number of concurrent builds.
func WithPoolSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.poolSize = size
		}
	}
}

// Worker processes build jobs on a bounded goroutine pool.
type Worker struct {
	jobs     JobQueue
	files    FileOpener
	idx      index.Service
	embedder embed.Provider

	interval time.Duration
	poolSize int
	pool     *ants.Pool

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs a stopped Worker.
func New(jobs JobQueue, files FileOpener, idx index.Service, embedder embed.Provider, opts ...Option) (*Worker, error) {
	if jobs == nil || files == nil || embedder == nil {
		return nil, errors.New("job queue, file opener and embedder required")
	}
	w := &Worker{
		jobs:     jobs,
		files:    files,
		idx:      idx,
		embedder: embedder,
		interval: defaultScanInterval,
		poolSize: defaultPoolSize,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	pool, err := ants.NewPool(w.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	w.pool = pool
	return w, nil
}

// Run scans for requested jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	logger := common.Logger()
	logger.Info("worker: started", "interval", w.interval, "pool", w.poolSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker: stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// Close releases the goroutine pool.
func (w *Worker) Close() {
	if w != nil && w.pool != nil {
		w.pool.Release()
	}
}

func (w *Worker) scan(ctx context.Context) {
	logger := common.Logger()
	jobs, err := w.jobs.JobsRequested(ctx)
	if err != nil {
		logger.Warn("worker: scan failed", "error", err)
		return
	}
	for _, job := range jobs {
		if !w.claim(job.ID) {
			continue
		}
		job := job
		if err := w.pool.Submit(func() {
			defer w.release(job.ID)
			w.process(ctx, job)
		}); err != nil {
			w.release(job.ID)
			logger.Warn("worker: submit failed", "job", job.ID, "error", err)
		}
	}
}

func (w *Worker) claim(jobID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[jobID]; ok {
		return false
	}
	w.inflight[jobID] = struct{}{}
	return true
}

func (w *Worker) release(jobID string) {
	w.mu.Lock()
	delete(w.inflight, jobID)
	w.mu.Unlock()
}

func (w *Worker) process(ctx context.Context, job ledger.BuildJob) {
	logger := common.Logger()
	if _, err := w.jobs.UpdateJobStatus(ctx, job.ID, ledger.StatusBuilding, ""); err != nil {
		logger.Warn("worker: mark building failed", "job", job.ID, "error", err)
		return
	}
	if err := w.build(ctx, job); err != nil {
		if _, uerr := w.jobs.UpdateJobStatus(ctx, job.ID, ledger.StatusError, err.Error()); uerr != nil {
			logger.Warn("worker: mark error failed", "job", job.ID, "error", uerr)
		}
		logger.Warn("worker: build failed", "job", job.ID, "file", job.FileID, "error", err)
		return
	}
	if _, err := w.jobs.UpdateJobStatus(ctx, job.ID, ledger.StatusCompleted, ""); err != nil {
		logger.Warn("worker: mark completed failed", "job", job.ID, "error", err)
		return
	}
	logger.Info("worker: build completed", "job", job.ID, "tenant", job.TenantID, "file", job.FileID)
}

func (w *Worker) build(ctx context.Context, job ledger.BuildJob) error {
	reader, file, err := w.files.Open(job.TenantID, job.FileID)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()
	chunks, err := chunkFile(file.ID, reader)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return errors.New("source file is empty")
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if w.idx != nil && w.idx.Available() {
		if err := w.idx.UpsertChunks(ctx, job.TenantID, chunks, vectors); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
	}
	return nil
}

// chunkFile splits the document into fixed-size line chunks for indexing.
func chunkFile(fileID string, r io.Reader) ([]index.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var chunks []index.Chunk
	var buffer []string
	seq := 0
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		chunks = append(chunks, index.Chunk{
			ID:      fmt.Sprintf("%s:%d", fileID, seq),
			FileID:  fileID,
			Seq:     seq,
			Content: strings.Join(buffer, "\n"),
		})
		seq++
		buffer = buffer[:0]
	}
	for scanner.Scan() {
		buffer = append(buffer, scanner.Text())
		if len(buffer) >= chunkLineCount {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	flush()
	return chunks, nil
}
