// File path: internal/api/import_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/importer"
)

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	if tenantID == "" || req.FileID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id and file_id required"))
		return
	}
	batch, err := s.core.Importer().Preview(r.Context(), tenantID, req.FileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

func (s *Server) handleImportBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.core.Importer().Batch(chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, importStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batch, err := s.core.Importer().SetTemplate(chi.URLParam(r, "batchID"), req.Template)
	if err != nil {
		writeError(w, importStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleImportRowUpdate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid row index: %w", err))
		return
	}
	var req rowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batch, err := s.core.Importer().UpdateRow(chi.URLParam(r, "batchID"), index, req.Row)
	if err != nil {
		writeError(w, importStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleImportRowDelete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid row index: %w", err))
		return
	}
	batch, err := s.core.Importer().DeleteRow(chi.URLParam(r, "batchID"), index)
	if err != nil {
		writeError(w, importStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	result, err := s.core.Importer().Commit(r.Context(), batchID)
	if err != nil {
		// A failed completion mark still inserted rows; surface both.
		if len(result.Records) > 0 {
			common.Logger().Warn("api: import committed but job mark failed", "batch", batchID, "error", err)
			writeJSON(w, http.StatusOK, result)
			return
		}
		writeError(w, importStatus(err), err)
		return
	}
	if tenantID := strings.TrimSpace(result.Job.TenantID); tenantID != "" {
		s.syncUsage(r, tenantID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportDiscard(w http.ResponseWriter, r *http.Request) {
	s.core.Importer().Discard(chi.URLParam(r, "batchID"))
	writeJSON(w, http.StatusOK, map[string]string{"discarded": chi.URLParam(r, "batchID")})
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, importer.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrRowOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
