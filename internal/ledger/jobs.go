// File path: internal/ledger/jobs.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when no build job matches the requested id.
var ErrJobNotFound = errors.New("build job not found")

// CreateJob inserts a new build job. An empty ID is assigned, an empty status
// defaults to ready.
func (s *Store) CreateJob(ctx context.Context, job BuildJob) (BuildJob, error) {
	if s == nil || s.db == nil {
		return BuildJob{}, errors.New("catalog store not initialised")
	}
	job.TenantID = strings.TrimSpace(job.TenantID)
	job.FileID = strings.TrimSpace(job.FileID)
	if job.TenantID == "" || job.FileID == "" {
		return BuildJob{}, errors.New("tenant id and file id required")
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusReady
	}
	if !job.Status.Valid() || job.Status == StatusIdle {
		return BuildJob{}, fmt.Errorf("invalid job status %q", job.Status)
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO build_jobs (id, tenant_id, file_id, status, error, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.TenantID, job.FileID, job.Status, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return BuildJob{}, fmt.Errorf("insert build job: %w", err)
	}
	return job, nil
}

// UpdateJobStatus sets the job's status and error message, returning the
// updated row. The write is last-write-wins: the external worker may touch the
// same row concurrently and the next poll corrects the view.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status Status, errMsg string) (BuildJob, error) {
	if s == nil || s.db == nil {
		return BuildJob{}, errors.New("catalog store not initialised")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return BuildJob{}, errors.New("job id required")
	}
	if !status.Valid() || status == StatusIdle {
		return BuildJob{}, fmt.Errorf("invalid job status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE build_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), jobID)
	if err != nil {
		return BuildJob{}, fmt.Errorf("update build job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return BuildJob{}, fmt.Errorf("update build job: %w", err)
	}
	if affected == 0 {
		return BuildJob{}, ErrJobNotFound
	}
	return s.Job(ctx, jobID)
}

// Job retrieves a single build job by id.
func (s *Store) Job(ctx context.Context, jobID string) (BuildJob, error) {
	if s == nil || s.db == nil {
		return BuildJob{}, errors.New("catalog store not initialised")
	}
	var job BuildJob
	if err := s.db.GetContext(ctx, &job, `SELECT * FROM build_jobs WHERE id = ?`, strings.TrimSpace(jobID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BuildJob{}, ErrJobNotFound
		}
		return BuildJob{}, fmt.Errorf("select build job: %w", err)
	}
	return job, nil
}

// JobForFile returns the job referencing the given file, or nil when none
// exists. Callers reuse the returned job rather than creating a duplicate:
// at most one job per file is a design invariant, not a schema constraint.
// Should duplicates slip in anyway, the most recently updated job wins here,
// matching the one the reconciled file view surfaces.
func (s *Store) JobForFile(ctx context.Context, tenantID, fileID string) (*BuildJob, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	var job BuildJob
	err := s.db.GetContext(ctx, &job,
		`SELECT * FROM build_jobs WHERE tenant_id = ? AND file_id = ? ORDER BY updated_at DESC LIMIT 1`,
		strings.TrimSpace(tenantID), strings.TrimSpace(fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select build job: %w", err)
	}
	return &job, nil
}

// ListJobs returns all build jobs for a tenant.
func (s *Store) ListJobs(ctx context.Context, tenantID string) ([]BuildJob, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	jobs := []BuildJob{}
	if err := s.db.SelectContext(ctx, &jobs,
		`SELECT * FROM build_jobs WHERE tenant_id = ? ORDER BY created_at`, strings.TrimSpace(tenantID)); err != nil {
		return nil, fmt.Errorf("select build jobs: %w", err)
	}
	return jobs, nil
}

// JobsWithStatus returns the tenant's jobs currently in the given status.
func (s *Store) JobsWithStatus(ctx context.Context, tenantID string, status Status) ([]BuildJob, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	jobs := []BuildJob{}
	if err := s.db.SelectContext(ctx, &jobs,
		`SELECT * FROM build_jobs WHERE tenant_id = ? AND status = ? ORDER BY created_at`,
		strings.TrimSpace(tenantID), status); err != nil {
		return nil, fmt.Errorf("select build jobs: %w", err)
	}
	return jobs, nil
}

// JobsRequested returns every job across tenants waiting in the start state,
// oldest first. The bundled worker claims its work from this set.
func (s *Store) JobsRequested(ctx context.Context) ([]BuildJob, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	jobs := []BuildJob{}
	if err := s.db.SelectContext(ctx, &jobs,
		`SELECT * FROM build_jobs WHERE status = ? ORDER BY updated_at`, StatusStart); err != nil {
		return nil, fmt.Errorf("select requested jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob removes a build job.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM build_jobs WHERE id = ?`, strings.TrimSpace(jobID)); err != nil {
		return fmt.Errorf("delete build job: %w", err)
	}
	return nil
}

// DeleteJobsForFile removes every job referencing the given file. Used by the
// file-deletion path and by reconciliation cleanup of orphaned jobs.
func (s *Store) DeleteJobsForFile(ctx context.Context, tenantID, fileID string) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM build_jobs WHERE tenant_id = ? AND file_id = ?`,
		strings.TrimSpace(tenantID), strings.TrimSpace(fileID)); err != nil {
		return fmt.Errorf("delete build jobs: %w", err)
	}
	return nil
}

// ResetTenantJobs forces every job for the tenant back to ready, regardless of
// its current state. Returns the number of rows touched.
func (s *Store) ResetTenantJobs(ctx context.Context, tenantID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("catalog store not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, errors.New("tenant id required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE build_jobs SET status = ?, error = '', updated_at = ? WHERE tenant_id = ?`,
		StatusReady, time.Now().UTC(), tenantID)
	if err != nil {
		return 0, fmt.Errorf("reset build jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset build jobs: %w", err)
	}
	return affected, nil
}
