// File path: internal/purge/purge.go

// Package purge coordinates the destructive full reset of a tenant's derived
// knowledge state. The external reset call is the sole source of truth: only
// after it succeeds are the tenant's build jobs forced back to ready. Source
// files are never touched, so the operator can re-trigger builds afterwards.
package purge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
)

// Resetter is the external trigger the coordinator invokes.
type Resetter interface {
	ResetTenant(ctx context.Context, tenantID, slug string) error
}

// JobResetter is the ledger slice reset after a successful external purge.
type JobResetter interface {
	Tenant(ctx context.Context, tenantID string) (ledger.Tenant, error)
	ResetTenantJobs(ctx context.Context, tenantID string) (int64, error)
}

// Coordinator runs the purge as one coarse-grained operation. It never
// retries automatically.
type Coordinator struct {
	resetter Resetter
	jobs     JobResetter
}

// NewCoordinator constructs a Coordinator over the given collaborators.
func NewCoordinator(resetter Resetter, jobs JobResetter) (*Coordinator, error) {
	if resetter == nil || jobs == nil {
		return nil, errors.New("resetter and job store required")
	}
	return &Coordinator{resetter: resetter, jobs: jobs}, nil
}

// Purge invokes the external memory reset and, on success, resets every build
// job for the tenant to ready regardless of its prior state. On failure no
// local state changes. Returns the number of jobs reset.
func (c *Coordinator) Purge(ctx context.Context, tenantID string) (int64, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, errors.New("tenant id required")
	}
	tenant, err := c.jobs.Tenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if err := c.resetter.ResetTenant(ctx, tenant.ID, tenant.Slug); err != nil {
		return 0, fmt.Errorf("reset tenant memory: %w", err)
	}
	reset, err := c.jobs.ResetTenantJobs(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("reset build jobs: %w", err)
	}
	common.Logger().Info("purge: tenant memory reset", "tenant", tenantID, "jobs_reset", reset)
	return reset, nil
}
