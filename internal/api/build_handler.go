// File path: internal/api/build_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/build"
	"github.com/chatforge/kbcore/internal/common"
)

func (s *Server) handleBuildStart(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	if tenantID == "" || req.FileID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id and file_id required"))
		return
	}
	job, err := s.core.Builds().Start(r.Context(), tenantID, req.FileID, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, build.ErrBuildRunning):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, build.ErrRebuildConfirm):
			writeError(w, http.StatusPreconditionRequired, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	logger.Info("api: build requested", "tenant", tenantID, "file", req.FileID, "job", job.ID, "confirm", req.Confirm)
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleBuildPause(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	if tenantID == "" || req.FileID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id and file_id required"))
		return
	}
	job, err := s.core.Builds().Pause(r.Context(), tenantID, req.FileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: build paused", "tenant", tenantID, "file", req.FileID, "status", job.Status)
	writeJSON(w, http.StatusOK, job)
}

// handleJobs serves the poller's cached snapshot when the poller watches this
// tenant, falling back to a direct catalog read otherwise.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant id required"))
		return
	}
	if s.core.Poller().Tenant() == tenantID {
		writeJSON(w, http.StatusOK, jobsResponse{TenantID: tenantID, Jobs: s.core.Poller().Snapshot()})
		return
	}
	jobs, err := s.core.Catalog().ListJobs(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobsResponse{TenantID: tenantID, Jobs: jobs})
}

func (s *Server) handlePollStart(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tenant_id required"))
		return
	}
	if err := s.core.Poller().Start(req.TenantID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tenant_id": req.TenantID, "polling": "started"})
}

func (s *Server) handlePollStop(w http.ResponseWriter, r *http.Request) {
	s.core.Poller().Stop()
	writeJSON(w, http.StatusOK, map[string]string{"polling": "stopped"})
}
