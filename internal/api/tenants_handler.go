// File path: internal/api/tenants_handler.go
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

func (s *Server) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := s.core.Catalog().CreateAccount(r.Context(), ledger.Account{Name: req.Name})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	account, err := s.core.Catalog().Account(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleAccountUsage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.core.Usage().AccountSnapshot(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tenant := ledger.Tenant{
		AccountID: strings.TrimSpace(req.AccountID),
		Name:      strings.TrimSpace(req.Name),
		Slug:      strings.TrimSpace(req.Slug),
	}
	created, err := s.core.Catalog().CreateTenant(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	common.Logger().Info("api: tenant created", "tenant", created.ID, "account", created.AccountID, "slug", created.Slug)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTenantGet(w http.ResponseWriter, r *http.Request) {
	tenant, err := s.core.Catalog().Tenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleStatsSync(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id required"))
		return
	}
	snapshot, err := s.core.Usage().Sync(r.Context(), tenantID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
