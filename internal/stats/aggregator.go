// File path: internal/stats/aggregator.go

// Package stats derives per-tenant usage counters from the current file set
// and rolls them up into account-level totals. Counters are always recomputed
// from a full listing, never maintained incrementally, so they cannot drift.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/storage"
)

const megabyte = 1 << 20

// FileLister is the storage slice the aggregator scans.
type FileLister interface {
	List(tenantID string) ([]storage.SourceFile, error)
}

// UsageStore is the catalog slice holding the persisted counters.
type UsageStore interface {
	Tenant(ctx context.Context, tenantID string) (ledger.Tenant, error)
	UpdateTenantUsage(ctx context.Context, tenantID string, fileCount int, totalSizeMB int64) error
	TenantsForAccount(ctx context.Context, accountID string) ([]ledger.Tenant, error)
	UpdateAccountUsage(ctx context.Context, accountID string, fileCount int, totalSizeMB int64) error
}

// Snapshot is the tenant usage view produced for callers.
type Snapshot struct {
	FileCount   int   `json:"file_count"`
	TotalSizeMB int64 `json:"total_size_mb"`
}

// Aggregator recomputes and persists usage counters.
type Aggregator struct {
	files FileLister
	usage UsageStore
}

// NewAggregator constructs an Aggregator over the given collaborators.
func NewAggregator(files FileLister, usage UsageStore) (*Aggregator, error) {
	if files == nil || usage == nil {
		return nil, errors.New("file lister and usage store required")
	}
	return &Aggregator{files: files, usage: usage}, nil
}

// Sync rescans the tenant's complete file listing, persists the counters on
// the tenant row when they changed, and rolls the account totals up after a
// tenant-row write actually happened. Identical counters issue no write at
// all, so repeated syncs are free of update-loop feedback.
func (a *Aggregator) Sync(ctx context.Context, tenantID string) (Snapshot, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Snapshot{}, errors.New("tenant id required")
	}
	files, err := a.files.List(tenantID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list files: %w", err)
	}
	snapshot := Compute(files)

	tenant, err := a.usage.Tenant(ctx, tenantID)
	if err != nil {
		return Snapshot{}, err
	}
	if tenant.FileCount == snapshot.FileCount && tenant.TotalSizeMB == snapshot.TotalSizeMB {
		return snapshot, nil
	}
	if err := a.usage.UpdateTenantUsage(ctx, tenantID, snapshot.FileCount, snapshot.TotalSizeMB); err != nil {
		return Snapshot{}, err
	}
	common.Logger().Info("stats: tenant usage updated",
		"tenant", tenantID, "files", snapshot.FileCount, "size_mb", snapshot.TotalSizeMB)
	if err := a.rollup(ctx, tenant.AccountID); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// AccountSnapshot re-sums the persisted tenant counters for an account,
// refreshing the caller's cached view of account usage.
func (a *Aggregator) AccountSnapshot(ctx context.Context, accountID string) (Snapshot, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Snapshot{}, errors.New("account id required")
	}
	tenants, err := a.usage.TenantsForAccount(ctx, accountID)
	if err != nil {
		return Snapshot{}, err
	}
	var total Snapshot
	for _, tenant := range tenants {
		total.FileCount += tenant.FileCount
		total.TotalSizeMB += tenant.TotalSizeMB
	}
	return total, nil
}

func (a *Aggregator) rollup(ctx context.Context, accountID string) error {
	total, err := a.AccountSnapshot(ctx, accountID)
	if err != nil {
		return err
	}
	if err := a.usage.UpdateAccountUsage(ctx, accountID, total.FileCount, total.TotalSizeMB); err != nil {
		return fmt.Errorf("account rollup: %w", err)
	}
	common.Logger().Info("stats: account usage rolled up",
		"account", accountID, "files", total.FileCount, "size_mb", total.TotalSizeMB)
	return nil
}

// Compute derives the usage snapshot from a file listing. Total size is
// rounded up to whole megabytes.
func Compute(files []storage.SourceFile) Snapshot {
	var bytes int64
	for _, file := range files {
		bytes += file.Size
	}
	sizeMB := bytes / megabyte
	if bytes%megabyte != 0 {
		sizeMB++
	}
	return Snapshot{FileCount: len(files), TotalSizeMB: sizeMB}
}
