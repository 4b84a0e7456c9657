// File path: internal/api/server.go

// Package api exposes the knowledge core over HTTP. The surrounding product
// talks to the core exclusively through this seam.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/core"
)

type Server struct {
	router chi.Router
	core   *core.Core
}

func NewServer(c *core.Core) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("core required")
	}
	srv := &Server{
		router: chi.NewRouter(),
		core:   c,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/accounts", s.handleAccountCreate)
	s.router.Get("/v1/accounts/{accountID}", s.handleAccountGet)
	s.router.Get("/v1/accounts/{accountID}/usage", s.handleAccountUsage)
	s.router.Post("/v1/tenants", s.handleTenantCreate)
	s.router.Get("/v1/tenants/{tenantID}", s.handleTenantGet)

	s.router.Post("/v1/tenants/{tenantID}/files", s.handleFileUpload)
	s.router.Get("/v1/tenants/{tenantID}/files", s.handleFileList)
	s.router.Delete("/v1/tenants/{tenantID}/files/{fileID}", s.handleFileDelete)

	s.router.Post("/v1/tenants/{tenantID}/build/start", s.handleBuildStart)
	s.router.Post("/v1/tenants/{tenantID}/build/pause", s.handleBuildPause)
	s.router.Get("/v1/tenants/{tenantID}/jobs", s.handleJobs)
	s.router.Post("/v1/poll/start", s.handlePollStart)
	s.router.Post("/v1/poll/stop", s.handlePollStop)

	s.router.Post("/v1/tenants/{tenantID}/import/preview", s.handleImportPreview)
	s.router.Get("/v1/import/batches/{batchID}", s.handleImportBatch)
	s.router.Put("/v1/import/batches/{batchID}/template", s.handleImportTemplate)
	s.router.Put("/v1/import/batches/{batchID}/rows/{index}", s.handleImportRowUpdate)
	s.router.Delete("/v1/import/batches/{batchID}/rows/{index}", s.handleImportRowDelete)
	s.router.Post("/v1/import/batches/{batchID}/commit", s.handleImportCommit)
	s.router.Delete("/v1/import/batches/{batchID}", s.handleImportDiscard)

	s.router.Post("/v1/tenants/{tenantID}/content", s.handleContentCreate)
	s.router.Get("/v1/tenants/{tenantID}/content", s.handleContentList)
	s.router.Get("/v1/tenants/{tenantID}/content/{recordID}", s.handleContentGet)
	s.router.Delete("/v1/tenants/{tenantID}/content/{recordID}", s.handleContentDelete)
	s.router.Put("/v1/tenants/{tenantID}/content/{recordID}/indexed", s.handleContentIndexed)

	s.router.Post("/v1/tenants/{tenantID}/purge", s.handlePurge)
	s.router.Post("/v1/tenants/{tenantID}/stats/sync", s.handleStatsSync)

	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
