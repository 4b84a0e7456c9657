// File path: internal/importer/importer.go

// Package importer turns a tabular source file into content records through a
// human review step. A preview parses the file into an ephemeral batch the
// operator may edit before commit; nothing is written until the commit, and
// the commit is one transactional bulk insert.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/storage"
)

var (
	// ErrBatchNotFound is returned when no pending batch matches the id.
	ErrBatchNotFound = errors.New("import batch not found")
	// ErrRowOutOfRange is returned when a row edit targets a missing index.
	ErrRowOutOfRange = errors.New("import row index out of range")
)

// Batch is an in-memory import awaiting review. It lives only between
// preview and commit or discard; it is never persisted.
type Batch struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	FileID    string     `json:"file_id"`
	FileName  string     `json:"file_name"`
	Template  Template   `json:"template"`
	Rows      [][]string `json:"rows"`
	CreatedAt time.Time  `json:"created_at"`
}

// CommitResult reports what a successful commit produced.
type CommitResult struct {
	Records []ledger.ContentRecord `json:"records"`
	Job     ledger.BuildJob        `json:"job"`
}

// FileOpener is the storage slice the importer reads source files through.
type FileOpener interface {
	Open(tenantID, fileID string) (io.ReadCloser, storage.SourceFile, error)
}

// ContentWriter is the catalog slice receiving the bulk insert.
type ContentWriter interface {
	BulkInsertContent(ctx context.Context, records []ledger.ContentRecord) ([]ledger.ContentRecord, error)
}

// JobMarker is the ledger slice used to flag the originating job completed.
type JobMarker interface {
	JobForFile(ctx context.Context, tenantID, fileID string) (*ledger.BuildJob, error)
	CreateJob(ctx context.Context, job ledger.BuildJob) (ledger.BuildJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status ledger.Status, errMsg string) (ledger.BuildJob, error)
}

// Importer manages pending batches and performs commits.
type Importer struct {
	files   FileOpener
	content ContentWriter
	jobs    JobMarker

	mu      sync.Mutex
	batches map[string]*Batch
}

// New constructs an Importer over the given collaborators.
func New(files FileOpener, content ContentWriter, jobs JobMarker) (*Importer, error) {
	if files == nil || content == nil || jobs == nil {
		return nil, errors.New("file opener, content writer and job marker required")
	}
	return &Importer{
		files:   files,
		content: content,
		jobs:    jobs,
		batches: make(map[string]*Batch),
	}, nil
}

// Preview parses the source file into a new pending batch with an
// auto-selected template. Parse failures abort before anything is recorded.
func (im *Importer) Preview(ctx context.Context, tenantID, fileID string) (Batch, error) {
	tenantID = strings.TrimSpace(tenantID)
	fileID = strings.TrimSpace(fileID)
	if tenantID == "" || fileID == "" {
		return Batch{}, errors.New("tenant id and file id required")
	}
	reader, file, err := im.files.Open(tenantID, fileID)
	if err != nil {
		return Batch{}, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()
	rows, err := ParseTable(reader)
	if err != nil {
		return Batch{}, err
	}
	batch := &Batch{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		FileID:    fileID,
		FileName:  file.Name,
		Template:  DetectTemplate(rows),
		Rows:      rows,
		CreatedAt: time.Now().UTC(),
	}
	im.mu.Lock()
	im.batches[batch.ID] = batch
	im.mu.Unlock()
	common.Logger().Info("import: batch previewed",
		"tenant", tenantID, "file", fileID, "rows", len(rows), "template", batch.Template)
	return cloneBatch(batch), nil
}

// Batch returns a copy of a pending batch.
func (im *Importer) Batch(batchID string) (Batch, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	batch, ok := im.batches[strings.TrimSpace(batchID)]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	return cloneBatch(batch), nil
}

// SetTemplate overrides the auto-selected template.
func (im *Importer) SetTemplate(batchID string, template Template) (Batch, error) {
	if !template.Valid() {
		return Batch{}, fmt.Errorf("invalid template %q", template)
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	batch, ok := im.batches[strings.TrimSpace(batchID)]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	batch.Template = template
	return cloneBatch(batch), nil
}

// UpdateRow replaces the cells of one row.
func (im *Importer) UpdateRow(batchID string, index int, row []string) (Batch, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	batch, ok := im.batches[strings.TrimSpace(batchID)]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	if index < 0 || index >= len(batch.Rows) {
		return Batch{}, ErrRowOutOfRange
	}
	batch.Rows[index] = append([]string(nil), row...)
	return cloneBatch(batch), nil
}

// DeleteRow removes one row from the batch.
func (im *Importer) DeleteRow(batchID string, index int) (Batch, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	batch, ok := im.batches[strings.TrimSpace(batchID)]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	if index < 0 || index >= len(batch.Rows) {
		return Batch{}, ErrRowOutOfRange
	}
	batch.Rows = append(batch.Rows[:index], batch.Rows[index+1:]...)
	return cloneBatch(batch), nil
}

// Discard drops a pending batch without writing anything.
func (im *Importer) Discard(batchID string) {
	im.mu.Lock()
	delete(im.batches, strings.TrimSpace(batchID))
	im.mu.Unlock()
}

// Commit maps the remaining rows onto the chosen template and performs one
// transactional bulk insert. On success the batch is dropped and the
// originating build job is marked completed — the completion state doubles as
// the "rows imported" signal for tabular files. An insert failure leaves both
// the batch and the job untouched.
func (im *Importer) Commit(ctx context.Context, batchID string) (CommitResult, error) {
	im.mu.Lock()
	batch, ok := im.batches[strings.TrimSpace(batchID)]
	var snapshot Batch
	if ok {
		snapshot = cloneBatch(batch)
	}
	im.mu.Unlock()
	if !ok {
		return CommitResult{}, ErrBatchNotFound
	}
	if len(snapshot.Rows) == 0 {
		return CommitResult{}, errors.New("import batch has no rows")
	}
	records := make([]ledger.ContentRecord, 0, len(snapshot.Rows))
	for i, row := range snapshot.Rows {
		record, err := snapshot.Template.Record(snapshot.TenantID, row)
		if err != nil {
			return CommitResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	inserted, err := im.content.BulkInsertContent(ctx, records)
	if err != nil {
		return CommitResult{}, err
	}
	job, err := im.markImported(ctx, snapshot.TenantID, snapshot.FileID)
	if err != nil {
		// The rows landed; a failed completion mark is surfaced but the
		// batch is still consumed so a retry cannot double-insert.
		im.Discard(snapshot.ID)
		return CommitResult{Records: inserted}, err
	}
	im.Discard(snapshot.ID)
	common.Logger().Info("import: batch committed",
		"tenant", snapshot.TenantID, "file", snapshot.FileID, "records", len(inserted))
	return CommitResult{Records: inserted, Job: job}, nil
}

func (im *Importer) markImported(ctx context.Context, tenantID, fileID string) (ledger.BuildJob, error) {
	existing, err := im.jobs.JobForFile(ctx, tenantID, fileID)
	if err != nil {
		return ledger.BuildJob{}, fmt.Errorf("look up build job: %w", err)
	}
	if existing == nil {
		return im.jobs.CreateJob(ctx, ledger.BuildJob{
			TenantID: tenantID,
			FileID:   fileID,
			Status:   ledger.StatusCompleted,
		})
	}
	return im.jobs.UpdateJobStatus(ctx, existing.ID, ledger.StatusCompleted, "")
}

func cloneBatch(src *Batch) Batch {
	clone := *src
	clone.Rows = make([][]string, len(src.Rows))
	for i, row := range src.Rows {
		clone.Rows[i] = append([]string(nil), row...)
	}
	return clone
}
