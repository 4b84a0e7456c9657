// File path: internal/ledger/store_test.go
package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTenant(t *testing.T, store *Store) Tenant {
	t.Helper()
	ctx := context.Background()
	account, err := store.CreateAccount(ctx, Account{Name: "Acme"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	tenant, err := store.CreateTenant(ctx, Tenant{AccountID: account.ID, Name: "Support Bot"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant
}

func TestCreateTenantDerivesSlug(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	if tenant.Slug != "support-bot" {
		t.Fatalf("expected derived slug support-bot, got %q", tenant.Slug)
	}

	loaded, err := store.Tenant(context.Background(), tenant.ID)
	if err != nil {
		t.Fatalf("load tenant: %v", err)
	}
	if loaded.Slug != tenant.Slug || loaded.AccountID != tenant.AccountID {
		t.Fatalf("round-trip mismatch: %+v vs %+v", loaded, tenant)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Support Bot":   "support-bot",
		"  ACME 2.0  ":  "acme-2-0",
		"---":           "default",
		"":              "default",
		"already-clean": "already-clean",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	job, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f1"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != StatusReady {
		t.Fatalf("expected empty status to default to ready, got %q", job.Status)
	}

	updated, err := store.UpdateJobStatus(ctx, job.ID, StatusStart, "")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != StatusStart {
		t.Fatalf("expected start, got %q", updated.Status)
	}

	found, err := store.JobForFile(ctx, tenant.ID, "f1")
	if err != nil {
		t.Fatalf("job for file: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("expected job found by file reference, got %+v", found)
	}

	missing, err := store.JobForFile(ctx, tenant.ID, "unknown")
	if err != nil {
		t.Fatalf("job for unknown file: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for file without job, got %+v", missing)
	}
}

func TestJobForFilePrefersMostRecentlyUpdated(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	older, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f1", Status: StatusCompleted})
	if err != nil {
		t.Fatalf("seed first job: %v", err)
	}
	if _, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f1", Status: StatusReady}); err != nil {
		t.Fatalf("seed duplicate job: %v", err)
	}

	// Touching the first job makes it the most recently updated of the two.
	// It is the one the reconciled file view shows, so it must also be the
	// one handed back for reuse.
	time.Sleep(5 * time.Millisecond)
	if _, err := store.UpdateJobStatus(ctx, older.ID, StatusError, "chunking failed"); err != nil {
		t.Fatalf("update first job: %v", err)
	}

	found, err := store.JobForFile(ctx, tenant.ID, "f1")
	if err != nil {
		t.Fatalf("job for file: %v", err)
	}
	if found == nil || found.ID != older.ID {
		t.Fatalf("expected the most recently updated duplicate, got %+v", found)
	}
}

func TestCreateJobRejectsIdleStatus(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	if _, err := store.CreateJob(context.Background(), BuildJob{TenantID: tenant.ID, FileID: "f1", Status: StatusIdle}); err == nil {
		t.Fatalf("expected idle to be unstorable")
	}
}

func TestUpdateJobStatusUnknownJob(t *testing.T) {
	store := newTestStore(t)
	seedTenant(t, store)
	if _, err := store.UpdateJobStatus(context.Background(), "ghost", StatusReady, ""); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestResetTenantJobsForcesEveryStatusToReady(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	statuses := []Status{StatusReady, StatusStart, StatusBuilding, StatusCompleted, StatusError}
	for i, status := range statuses {
		if _, err := store.CreateJob(ctx, BuildJob{
			TenantID: tenant.ID, FileID: "f" + string(rune('0'+i)), Status: status, Error: "old failure",
		}); err != nil {
			t.Fatalf("seed job %q: %v", status, err)
		}
	}

	reset, err := store.ResetTenantJobs(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("reset jobs: %v", err)
	}
	if reset != int64(len(statuses)) {
		t.Fatalf("expected %d jobs reset, got %d", len(statuses), reset)
	}

	jobs, err := store.ListJobs(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	for _, job := range jobs {
		if job.Status != StatusReady || job.Error != "" {
			t.Fatalf("expected every job ready with cleared error, got %+v", job)
		}
	}
}

func TestJobsRequestedReturnsOnlyStartJobs(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	if _, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f1", Status: StatusStart}); err != nil {
		t.Fatalf("seed start job: %v", err)
	}
	if _, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f2", Status: StatusBuilding}); err != nil {
		t.Fatalf("seed building job: %v", err)
	}

	requested, err := store.JobsRequested(ctx)
	if err != nil {
		t.Fatalf("jobs requested: %v", err)
	}
	if len(requested) != 1 || requested[0].FileID != "f1" {
		t.Fatalf("expected only the start job, got %+v", requested)
	}
}

func TestDeleteJobsForFile(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	if _, err := store.CreateJob(ctx, BuildJob{TenantID: tenant.ID, FileID: "f1"}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := store.DeleteJobsForFile(ctx, tenant.ID, "f1"); err != nil {
		t.Fatalf("delete jobs: %v", err)
	}
	job, err := store.JobForFile(ctx, tenant.ID, "f1")
	if err != nil {
		t.Fatalf("job for file: %v", err)
	}
	if job != nil {
		t.Fatalf("expected job gone, got %+v", job)
	}
}

func TestBulkInsertContentIsAtomic(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	records := []ContentRecord{
		{TenantID: tenant.ID, Kind: KindFAQ, Question: "q1", Answer: "a1"},
		{TenantID: tenant.ID, Kind: KindFAQ, Question: "q2"},
	}
	if _, err := store.BulkInsertContent(ctx, records); err == nil {
		t.Fatalf("expected invalid row to fail the bulk insert")
	}
	stored, err := store.ListContent(ctx, tenant.ID, "")
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no rows after failed bulk insert, got %d", len(stored))
	}

	records[1].Answer = "a2"
	inserted, err := store.BulkInsertContent(ctx, records)
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("expected both rows inserted, got %d", len(inserted))
	}
}

func TestListContentFiltersByKind(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	if _, err := store.InsertContent(ctx, ContentRecord{TenantID: tenant.ID, Kind: KindFAQ, Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("insert faq: %v", err)
	}
	if _, err := store.InsertContent(ctx, ContentRecord{TenantID: tenant.ID, Kind: KindProduct, ProductName: "Widget"}); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	products, err := store.ListContent(ctx, tenant.ID, KindProduct)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].ProductName != "Widget" {
		t.Fatalf("expected one product, got %+v", products)
	}
	all, err := store.ListContent(ctx, tenant.ID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two records, got %d", len(all))
	}
}

func TestSetContentIndexed(t *testing.T) {
	store := newTestStore(t)
	tenant := seedTenant(t, store)
	ctx := context.Background()

	record, err := store.InsertContent(ctx, ContentRecord{TenantID: tenant.ID, Kind: KindFAQ, Question: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.SetContentIndexed(ctx, record.ID, true); err != nil {
		t.Fatalf("set indexed: %v", err)
	}
	loaded, err := store.ContentRecordByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Indexed {
		t.Fatalf("expected record flagged indexed")
	}
	if err := store.SetContentIndexed(ctx, "ghost", true); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
