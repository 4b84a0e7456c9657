// File path: internal/build/orchestrator.go

// Package build owns the legal state transitions of the build pipeline. The
// orchestrator writes only the "start" (request work) and "ready" (cancel a
// request) states; "building" and the terminal states belong to the external
// worker and are only ever observed through polling.
package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
)

var (
	// ErrRebuildConfirm is returned when restarting a finished build
	// without the explicit confirmation flag. Rebuilding is costly and
	// re-triggers external work.
	ErrRebuildConfirm = errors.New("rebuild requires confirmation")
	// ErrBuildRunning is returned when a start is requested while the
	// worker already owns the job.
	ErrBuildRunning = errors.New("build already running")
)

// JobStore is the slice of the ledger the orchestrator mutates.
type JobStore interface {
	JobForFile(ctx context.Context, tenantID, fileID string) (*ledger.BuildJob, error)
	CreateJob(ctx context.Context, job ledger.BuildJob) (ledger.BuildJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status ledger.Status, errMsg string) (ledger.BuildJob, error)
}

// Orchestrator triggers, pauses and re-triggers build jobs.
type Orchestrator struct {
	jobs JobStore
}

// NewOrchestrator constructs an Orchestrator over the given job store.
func NewOrchestrator(jobs JobStore) (*Orchestrator, error) {
	if jobs == nil {
		return nil, errors.New("job store required")
	}
	return &Orchestrator{jobs: jobs}, nil
}

// Start requests a build for the file. A file with no job gets one created in
// the start state; an existing job is reused and updated, never duplicated.
// Restarting from a terminal state requires confirm. Ledger failures are
// returned verbatim with no optimistic local advance.
func (o *Orchestrator) Start(ctx context.Context, tenantID, fileID string, confirm bool) (ledger.BuildJob, error) {
	tenantID = strings.TrimSpace(tenantID)
	fileID = strings.TrimSpace(fileID)
	if tenantID == "" || fileID == "" {
		return ledger.BuildJob{}, errors.New("tenant id and file id required")
	}
	existing, err := o.jobs.JobForFile(ctx, tenantID, fileID)
	if err != nil {
		return ledger.BuildJob{}, fmt.Errorf("look up build job: %w", err)
	}
	if existing == nil {
		job, err := o.jobs.CreateJob(ctx, ledger.BuildJob{
			TenantID: tenantID,
			FileID:   fileID,
			Status:   ledger.StatusStart,
		})
		if err != nil {
			return ledger.BuildJob{}, err
		}
		common.Logger().Info("build: job created", "tenant", tenantID, "file", fileID, "job", job.ID)
		return job, nil
	}
	switch existing.Status {
	case ledger.StatusStart, ledger.StatusBuilding:
		return ledger.BuildJob{}, ErrBuildRunning
	case ledger.StatusCompleted, ledger.StatusError:
		if !confirm {
			return ledger.BuildJob{}, ErrRebuildConfirm
		}
	}
	job, err := o.jobs.UpdateJobStatus(ctx, existing.ID, ledger.StatusStart, "")
	if err != nil {
		return ledger.BuildJob{}, err
	}
	common.Logger().Info("build: job requested", "tenant", tenantID, "file", fileID, "job", job.ID, "from", existing.Status)
	return job, nil
}

// Pause withdraws a build request. Only start and building jobs are touched;
// pausing anything else is a no-op, not an error. The request is best-effort:
// the worker may have raced past it to a terminal state, in which case the
// last write wins and the next poll corrects the view.
func (o *Orchestrator) Pause(ctx context.Context, tenantID, fileID string) (ledger.BuildJob, error) {
	tenantID = strings.TrimSpace(tenantID)
	fileID = strings.TrimSpace(fileID)
	if tenantID == "" || fileID == "" {
		return ledger.BuildJob{}, errors.New("tenant id and file id required")
	}
	existing, err := o.jobs.JobForFile(ctx, tenantID, fileID)
	if err != nil {
		return ledger.BuildJob{}, fmt.Errorf("look up build job: %w", err)
	}
	if existing == nil || !existing.Status.Active() {
		if existing != nil {
			return *existing, nil
		}
		return ledger.BuildJob{TenantID: tenantID, FileID: fileID, Status: ledger.StatusIdle}, nil
	}
	job, err := o.jobs.UpdateJobStatus(ctx, existing.ID, ledger.StatusReady, "")
	if err != nil {
		return ledger.BuildJob{}, err
	}
	common.Logger().Info("build: job paused", "tenant", tenantID, "file", fileID, "job", job.ID)
	return job, nil
}
