// File path: internal/api/content_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
)

func (s *Server) handleContentCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record := ledger.ContentRecord{
		TenantID:    tenantID,
		Kind:        req.Kind,
		Question:    req.Question,
		Answer:      req.Answer,
		ProductName: req.ProductName,
		SKU:         req.SKU,
		Price:       req.Price,
		Details:     req.Details,
		Link:        req.Link,
		Image:       req.Image,
	}
	inserted, err := s.core.Catalog().InsertContent(r.Context(), record)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, inserted)
}

func (s *Server) handleContentList(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	kind := ledger.ContentKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown content kind %q", kind))
		return
	}
	records, err := s.core.Catalog().ListContent(r.Context(), tenantID, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleContentGet(w http.ResponseWriter, r *http.Request) {
	record, err := s.core.Catalog().ContentRecordByID(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleContentDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	recordID := strings.TrimSpace(chi.URLParam(r, "recordID"))
	record, err := s.core.Catalog().ContentRecordByID(ctx, recordID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	// Indexed records are scrubbed from the external index first; the local
	// row survives if the cleanup call fails.
	if idx := s.core.Index(); record.Indexed && idx != nil && idx.Available() {
		if err := idx.DeleteDoc(ctx, tenantID, recordID); err != nil {
			writeError(w, http.StatusBadGateway, fmt.Errorf("index cleanup: %w", err))
			return
		}
	}
	if err := s.core.Catalog().DeleteContent(ctx, recordID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: content deleted", "tenant", tenantID, "record", recordID)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleContentIndexed(w http.ResponseWriter, r *http.Request) {
	var req indexedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recordID := chi.URLParam(r, "recordID")
	if err := s.core.Catalog().SetContentIndexed(r.Context(), recordID, req.Indexed); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": recordID, "indexed": req.Indexed})
}
