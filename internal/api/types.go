// File path: internal/api/types.go
package api

import (
	"github.com/chatforge/kbcore/internal/importer"
	"github.com/chatforge/kbcore/internal/ledger"
	"github.com/chatforge/kbcore/internal/reconcile"
	"github.com/chatforge/kbcore/internal/stats"
)

type accountRequest struct {
	Name string `json:"name"`
}

type tenantRequest struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
}

type fileListResponse struct {
	Files []reconcile.FileView `json:"files"`
	Usage stats.Snapshot       `json:"usage"`
}

type uploadResponse struct {
	File  reconcile.FileView `json:"file"`
	Usage stats.Snapshot     `json:"usage"`
}

type buildRequest struct {
	FileID  string `json:"file_id"`
	Confirm bool   `json:"confirm,omitempty"`
}

type pauseRequest struct {
	FileID string `json:"file_id"`
}

type pollRequest struct {
	TenantID string `json:"tenant_id"`
}

type jobsResponse struct {
	TenantID string            `json:"tenant_id"`
	Jobs     []ledger.BuildJob `json:"jobs"`
}

type previewRequest struct {
	FileID string `json:"file_id"`
}

type templateRequest struct {
	Template importer.Template `json:"template"`
}

type rowRequest struct {
	Row []string `json:"row"`
}

type contentRequest struct {
	Kind        ledger.ContentKind `json:"kind"`
	Question    string             `json:"question,omitempty"`
	Answer      string             `json:"answer,omitempty"`
	ProductName string             `json:"product_name,omitempty"`
	SKU         string             `json:"sku,omitempty"`
	Price       string             `json:"price,omitempty"`
	Details     string             `json:"details,omitempty"`
	Link        string             `json:"link,omitempty"`
	Image       string             `json:"image,omitempty"`
}

type indexedRequest struct {
	Indexed bool `json:"indexed"`
}

type purgeResponse struct {
	TenantID  string `json:"tenant_id"`
	JobsReset int64  `json:"jobs_reset"`
}

type deleteResponse struct {
	Deleted bool           `json:"deleted"`
	Usage   stats.Snapshot `json:"usage"`
}
