// File path: internal/api/purge_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
)

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id required"))
		return
	}
	purger := s.core.Purger()
	if purger == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("no knowledge index configured"))
		return
	}
	reset, err := purger.Purge(r.Context(), tenantID)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ledger.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	s.syncUsage(r, tenantID)
	common.Logger().Info("api: tenant purged", "tenant", tenantID, "jobs_reset", reset)
	writeJSON(w, http.StatusOK, purgeResponse{TenantID: tenantID, JobsReset: reset})
}
