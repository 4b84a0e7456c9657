// File path: internal/api/files_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/reconcile"
	"github.com/chatforge/kbcore/internal/stats"
	"github.com/chatforge/kbcore/internal/storage"
)

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id required"))
		return
	}
	const maxMemory = 64 << 20 // 64 MiB of in-memory file parts
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		logger.Warn("api: upload form parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file field required: %w", err))
		return
	}
	defer src.Close()
	name := strings.TrimSpace(header.Filename)
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file name required"))
		return
	}
	file, err := s.core.Files().Upload(tenantID, name, src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}
	usage := s.syncUsage(r, tenantID)
	logger.Info("api: file uploaded", "tenant", tenantID, "file", file.ID, "name", file.Name, "size", file.Size)
	views := reconcile.Join([]storage.SourceFile{file}, nil)
	writeJSON(w, http.StatusCreated, uploadResponse{File: views[0], Usage: usage})
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id required"))
		return
	}
	files, err := s.core.Files().List(tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list files: %w", err))
		return
	}
	jobs, err := s.core.Catalog().ListJobs(ctx, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list jobs: %w", err))
		return
	}
	usage := s.syncUsage(r, tenantID)
	writeJSON(w, http.StatusOK, fileListResponse{
		Files: reconcile.Join(files, jobs),
		Usage: usage,
	})
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	ctx := r.Context()
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	fileID := strings.TrimSpace(chi.URLParam(r, "fileID"))
	if tenantID == "" || fileID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id and file id required"))
		return
	}
	// Index cleanup runs first and is waited on; the local rows and the file
	// only go away once the external side has confirmed.
	if idx := s.core.Index(); idx != nil && idx.Available() {
		if err := idx.DeleteDoc(ctx, tenantID, fileID); err != nil {
			writeError(w, http.StatusBadGateway, fmt.Errorf("index cleanup: %w", err))
			return
		}
	}
	if err := s.core.Catalog().DeleteJobsForFile(ctx, tenantID, fileID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("unlink jobs: %w", err))
		return
	}
	if err := s.core.Files().Delete(tenantID, fileID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrFileNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	usage := s.syncUsage(r, tenantID)
	logger.Info("api: file deleted", "tenant", tenantID, "file", fileID)
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, Usage: usage})
}

// syncUsage refreshes the tenant's derived counters. A sync failure never
// fails the surrounding request; the counters catch up on the next pass.
func (s *Server) syncUsage(r *http.Request, tenantID string) stats.Snapshot {
	snapshot, err := s.core.Usage().Sync(r.Context(), tenantID)
	if err != nil && !errors.Is(err, ledger.ErrTenantNotFound) {
		common.Logger().Warn("api: usage sync failed", "tenant", tenantID, "error", err)
	}
	return snapshot
}
