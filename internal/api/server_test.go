// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chatforge/kbcore/internal/core"
	"github.com/chatforge/kbcore/internal/importer"
	"github.com/chatforge/kbcore/internal/index"
	"github.com/chatforge/kbcore/internal/ledger"
)

type fakeIndexService struct {
	resets  int
	deletes []string
	fail    bool
}

func (f *fakeIndexService) Available() bool { return true }

func (f *fakeIndexService) UpsertChunks(ctx context.Context, tenantID string, chunks []index.Chunk, vectors [][]float32) error {
	return nil
}

func (f *fakeIndexService) DeleteDoc(ctx context.Context, tenantID, docID string) error {
	if f.fail {
		return errors.New("index unavailable")
	}
	f.deletes = append(f.deletes, docID)
	return nil
}

func (f *fakeIndexService) ResetTenant(ctx context.Context, tenantID, slug string) error {
	if f.fail {
		return errors.New("index unavailable")
	}
	f.resets++
	return nil
}

func newTestServer(t *testing.T, idx index.Service) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := core.DefaultConfig()
	cfg.StorageRoot = filepath.Join(dir, "files")
	cfg.CatalogPath = filepath.Join(dir, "catalog.db")
	cfg.WorkerEnabled = false

	opts := []core.Option{}
	if idx != nil {
		opts = append(opts, core.WithIndex(idx))
	}
	c, err := core.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	server, err := NewServer(c)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func uploadFile(t *testing.T, server *Server, tenantID, name, content string) uploadResponse {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/"+tenantID+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func bootstrapTenant(t *testing.T, server *Server) ledger.Tenant {
	t.Helper()
	var account ledger.Account
	if rec := doJSON(t, server, http.MethodPost, "/v1/accounts", accountRequest{Name: "Acme"}, &account); rec.Code != http.StatusCreated {
		t.Fatalf("create account failed with %d: %s", rec.Code, rec.Body.String())
	}
	var tenant ledger.Tenant
	rec := doJSON(t, server, http.MethodPost, "/v1/tenants",
		tenantRequest{AccountID: account.ID, Name: "Support Bot"}, &tenant)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant failed with %d: %s", rec.Code, rec.Body.String())
	}
	return tenant
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadListAndUsage(t *testing.T) {
	server := newTestServer(t, nil)
	tenant := bootstrapTenant(t, server)

	content := strings.Repeat("x", 2<<20)
	uploaded := uploadFile(t, server, tenant.ID, "big.txt", content)
	if uploaded.File.Status != ledger.StatusIdle {
		t.Fatalf("expected fresh upload idle, got %q", uploaded.File.Status)
	}
	if uploaded.Usage.FileCount != 1 || uploaded.Usage.TotalSizeMB != 2 {
		t.Fatalf("expected usage 1 file / 2 MB after a 2MB upload, got %+v", uploaded.Usage)
	}

	var listing fileListResponse
	if rec := doJSON(t, server, http.MethodGet, "/v1/tenants/"+tenant.ID+"/files", nil, &listing); rec.Code != http.StatusOK {
		t.Fatalf("list failed with %d", rec.Code)
	}
	if len(listing.Files) != 1 || listing.Files[0].ID != uploaded.File.ID {
		t.Fatalf("expected uploaded file listed, got %+v", listing.Files)
	}

	var account ledger.Account
	doJSON(t, server, http.MethodGet, "/v1/accounts/"+tenant.AccountID, nil, &account)
	if account.FileCount != 1 || account.TotalSizeMB != 2 {
		t.Fatalf("expected account rollup 1 file / 2 MB, got %+v", account)
	}
}

func TestBuildLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t, nil)
	tenant := bootstrapTenant(t, server)
	uploaded := uploadFile(t, server, tenant.ID, "doc.txt", "knowledge")
	buildPath := "/v1/tenants/" + tenant.ID + "/build/start"
	pausePath := "/v1/tenants/" + tenant.ID + "/build/pause"

	var job ledger.BuildJob
	if rec := doJSON(t, server, http.MethodPost, buildPath, buildRequest{FileID: uploaded.File.ID}, &job); rec.Code != http.StatusOK {
		t.Fatalf("build start failed with %d: %s", rec.Code, rec.Body.String())
	}
	if job.Status != ledger.StatusStart {
		t.Fatalf("expected job in start state, got %q", job.Status)
	}

	if rec := doJSON(t, server, http.MethodPost, buildPath, buildRequest{FileID: uploaded.File.ID}, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for running build, got %d", rec.Code)
	}

	var paused ledger.BuildJob
	if rec := doJSON(t, server, http.MethodPost, pausePath, pauseRequest{FileID: uploaded.File.ID}, &paused); rec.Code != http.StatusOK {
		t.Fatalf("pause failed with %d", rec.Code)
	}
	if paused.Status != ledger.StatusReady {
		t.Fatalf("expected ready after pause, got %q", paused.Status)
	}

	// Pausing again is a documented no-op.
	var again ledger.BuildJob
	if rec := doJSON(t, server, http.MethodPost, pausePath, pauseRequest{FileID: uploaded.File.ID}, &again); rec.Code != http.StatusOK {
		t.Fatalf("second pause failed with %d", rec.Code)
	}
	if again.Status != ledger.StatusReady {
		t.Fatalf("expected pause no-op to keep ready, got %q", again.Status)
	}
}

func TestImportFlowOverHTTP(t *testing.T) {
	server := newTestServer(t, nil)
	tenant := bootstrapTenant(t, server)
	uploaded := uploadFile(t, server, tenant.ID, "faq.csv", "\"How, though?\",\"Like this\"\nq2,a2\n")

	var batch importer.Batch
	rec := doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/import/preview",
		previewRequest{FileID: uploaded.File.ID}, &batch)
	if rec.Code != http.StatusCreated {
		t.Fatalf("preview failed with %d: %s", rec.Code, rec.Body.String())
	}
	if batch.Template != importer.TemplateFAQ || len(batch.Rows) != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.Rows[0][0] != "How, though?" {
		t.Fatalf("expected quote-aware parsing, got %v", batch.Rows[0])
	}

	var edited importer.Batch
	rec = doJSON(t, server, http.MethodPut,
		fmt.Sprintf("/v1/import/batches/%s/rows/1", batch.ID),
		rowRequest{Row: []string{"q2 edited", "a2 edited"}}, &edited)
	if rec.Code != http.StatusOK || edited.Rows[1][0] != "q2 edited" {
		t.Fatalf("row update failed: %d %+v", rec.Code, edited.Rows)
	}

	var result importer.CommitResult
	rec = doJSON(t, server, http.MethodPost, "/v1/import/batches/"+batch.ID+"/commit", nil, &result)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit failed with %d: %s", rec.Code, rec.Body.String())
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected two records imported, got %d", len(result.Records))
	}
	if result.Job.Status != ledger.StatusCompleted {
		t.Fatalf("expected originating job completed, got %q", result.Job.Status)
	}

	var listing struct {
		Records []ledger.ContentRecord `json:"records"`
	}
	doJSON(t, server, http.MethodGet, "/v1/tenants/"+tenant.ID+"/content?kind=faq", nil, &listing)
	if len(listing.Records) != 2 {
		t.Fatalf("expected imported records listed, got %d", len(listing.Records))
	}

	if rec := doJSON(t, server, http.MethodGet, "/v1/import/batches/"+batch.ID, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected batch consumed after commit, got %d", rec.Code)
	}
}

func TestContentCRUDOverHTTP(t *testing.T) {
	server := newTestServer(t, nil)
	tenant := bootstrapTenant(t, server)
	base := "/v1/tenants/" + tenant.ID + "/content"

	var record ledger.ContentRecord
	rec := doJSON(t, server, http.MethodPost, base,
		contentRequest{Kind: ledger.KindFAQ, Question: "Why?", Answer: "Because."}, &record)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed with %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, server, http.MethodPost, base, contentRequest{Kind: ledger.KindFAQ, Question: "only q"}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid faq rejected, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPut, base+"/"+record.ID+"/indexed", indexedRequest{Indexed: true}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("indexed toggle failed with %d", rec.Code)
	}
	var loaded ledger.ContentRecord
	doJSON(t, server, http.MethodGet, base+"/"+record.ID, nil, &loaded)
	if !loaded.Indexed {
		t.Fatalf("expected record indexed after toggle")
	}

	if rec := doJSON(t, server, http.MethodDelete, base+"/"+record.ID, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete failed with %d", rec.Code)
	}
	if rec := doJSON(t, server, http.MethodGet, base+"/"+record.ID, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestPurgeResetsJobsOverHTTP(t *testing.T) {
	idx := &fakeIndexService{}
	server := newTestServer(t, idx)
	tenant := bootstrapTenant(t, server)
	uploaded := uploadFile(t, server, tenant.ID, "doc.txt", "knowledge")

	doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/build/start",
		buildRequest{FileID: uploaded.File.ID}, nil)

	var purge purgeResponse
	rec := doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/purge", nil, &purge)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge failed with %d: %s", rec.Code, rec.Body.String())
	}
	if purge.JobsReset != 1 || idx.resets != 1 {
		t.Fatalf("expected one job reset after one external reset, got %+v (resets %d)", purge, idx.resets)
	}

	var listing fileListResponse
	doJSON(t, server, http.MethodGet, "/v1/tenants/"+tenant.ID+"/files", nil, &listing)
	if len(listing.Files) != 1 {
		t.Fatalf("expected source files untouched by purge, got %d", len(listing.Files))
	}
	if listing.Files[0].Status != ledger.StatusReady {
		t.Fatalf("expected job forced back to ready, got %q", listing.Files[0].Status)
	}
}

func TestPurgeFailureChangesNothing(t *testing.T) {
	idx := &fakeIndexService{fail: true}
	server := newTestServer(t, idx)
	tenant := bootstrapTenant(t, server)
	uploaded := uploadFile(t, server, tenant.ID, "doc.txt", "knowledge")
	doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/build/start",
		buildRequest{FileID: uploaded.File.ID}, nil)

	if rec := doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/purge", nil, nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on external failure, got %d", rec.Code)
	}

	var listing fileListResponse
	doJSON(t, server, http.MethodGet, "/v1/tenants/"+tenant.ID+"/files", nil, &listing)
	if listing.Files[0].Status != ledger.StatusStart {
		t.Fatalf("expected job untouched after failed purge, got %q", listing.Files[0].Status)
	}
}

func TestDeleteFileCleansIndexAndJobs(t *testing.T) {
	idx := &fakeIndexService{}
	server := newTestServer(t, idx)
	tenant := bootstrapTenant(t, server)
	uploaded := uploadFile(t, server, tenant.ID, "doc.txt", "knowledge")
	doJSON(t, server, http.MethodPost, "/v1/tenants/"+tenant.ID+"/build/start",
		buildRequest{FileID: uploaded.File.ID}, nil)

	var resp deleteResponse
	rec := doJSON(t, server, http.MethodDelete, "/v1/tenants/"+tenant.ID+"/files/"+uploaded.File.ID, nil, &resp)
	if rec.Code != http.StatusOK || !resp.Deleted {
		t.Fatalf("delete failed with %d: %s", rec.Code, rec.Body.String())
	}
	if len(idx.deletes) != 1 || idx.deletes[0] != uploaded.File.ID {
		t.Fatalf("expected external cleanup for the file, got %v", idx.deletes)
	}
	if resp.Usage.FileCount != 0 {
		t.Fatalf("expected usage back to zero, got %+v", resp.Usage)
	}

	var listing fileListResponse
	doJSON(t, server, http.MethodGet, "/v1/tenants/"+tenant.ID+"/files", nil, &listing)
	if len(listing.Files) != 0 {
		t.Fatalf("expected empty listing after delete, got %+v", listing.Files)
	}
}

func TestLogsEndpointServesHistory(t *testing.T) {
	server := newTestServer(t, nil)
	var payload struct {
		Logs []map[string]interface{} `json:"logs"`
	}
	rec := doJSON(t, server, http.MethodGet, "/v1/logs", nil, &payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs failed with %d", rec.Code)
	}
	if len(payload.Logs) == 0 {
		t.Fatalf("expected startup log entries captured")
	}
}
