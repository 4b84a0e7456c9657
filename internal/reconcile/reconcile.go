// File path: internal/reconcile/reconcile.go

// Package reconcile joins the two independently fetched collections — raw
// source files and build jobs — into one consistent per-file view. The join
// is a pure function over immutable snapshots: it never mutates either input
// and is safe to call from any interleaving of the poller and user actions.
package reconcile

import (
	"time"

	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/storage"
)

// FileView pairs one source file with its build state for presentation.
type FileView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Size         int64         `json:"size"`
	UploadedAt   time.Time     `json:"uploaded_at"`
	MimeType     string        `json:"mime_type"`
	Status       ledger.Status `json:"build_status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	JobID        string        `json:"job_id,omitempty"`
}

// Join pairs every file with its matching job, matched by file reference.
// Files with no job are assigned the idle status; jobs referencing files that
// no longer exist are dropped. The result always has exactly one entry per
// file.
func Join(files []storage.SourceFile, jobs []ledger.BuildJob) []FileView {
	byFile := make(map[string]ledger.BuildJob, len(jobs))
	for _, job := range jobs {
		existing, ok := byFile[job.FileID]
		// Duplicate jobs for one file should not happen, but if the
		// ledger holds them anyway the most recently updated one wins.
		if !ok || job.UpdatedAt.After(existing.UpdatedAt) {
			byFile[job.FileID] = job
		}
	}
	views := make([]FileView, 0, len(files))
	for _, file := range files {
		view := FileView{
			ID:         file.ID,
			Name:       file.Name,
			Size:       file.Size,
			UploadedAt: file.UploadedAt,
			MimeType:   file.MimeType,
			Status:     ledger.StatusIdle,
		}
		if job, ok := byFile[file.ID]; ok {
			view.Status = job.Status
			view.ErrorMessage = job.Error
			view.JobID = job.ID
		}
		views = append(views, view)
	}
	return views
}

// Orphans returns the jobs whose referenced file is no longer present. The
// caller may delete them as reconciliation cleanup.
func Orphans(files []storage.SourceFile, jobs []ledger.BuildJob) []ledger.BuildJob {
	present := make(map[string]struct{}, len(files))
	for _, file := range files {
		present[file.ID] = struct{}{}
	}
	var orphans []ledger.BuildJob
	for _, job := range jobs {
		if _, ok := present[job.FileID]; !ok {
			orphans = append(orphans, job)
		}
	}
	return orphans
}
