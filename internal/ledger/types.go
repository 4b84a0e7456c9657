// File path: internal/ledger/types.go
package ledger

import "time"

// Status is the closed set of build-job states. The core only ever writes
// StatusStart and StatusReady; StatusBuilding and the terminal states are set
// by the external worker and merely observed here. StatusIdle is never stored:
// it is the absence of a job, assigned by the reconciler.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusReady     Status = "ready"
	StatusStart     Status = "start"
	StatusBuilding  Status = "building"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Valid reports whether the status belongs to the closed enum.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusReady, StatusStart, StatusBuilding, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the status ends the build pipeline.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Active reports whether the external worker owns the job right now.
func (s Status) Active() bool {
	return s == StatusStart || s == StatusBuilding
}

// BuildJob tracks the asynchronous processing of one source file.
type BuildJob struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	FileID    string    `db:"file_id" json:"file_id"`
	Status    Status    `db:"status" json:"status"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContentKind discriminates structured knowledge records.
type ContentKind string

const (
	KindFAQ     ContentKind = "faq"
	KindProduct ContentKind = "product"
)

// Valid reports whether the kind is one of the two supported shapes.
func (k ContentKind) Valid() bool {
	return k == KindFAQ || k == KindProduct
}

// ContentRecord is a structured knowledge item, created manually or by the
// bulk importer.
type ContentRecord struct {
	ID       string      `db:"id" json:"id"`
	TenantID string      `db:"tenant_id" json:"tenant_id"`
	Kind     ContentKind `db:"kind" json:"kind"`

	Question string `db:"question" json:"question,omitempty"`
	Answer   string `db:"answer" json:"answer,omitempty"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
	SKU         string `db:"sku" json:"sku,omitempty"`
	Price       string `db:"price" json:"price,omitempty"`
	Details     string `db:"details" json:"details,omitempty"`

	Link      string    `db:"link" json:"link,omitempty"`
	Image     string    `db:"image" json:"image,omitempty"`
	Indexed   bool      `db:"indexed" json:"indexed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Tenant is one chatbot configuration and its isolated knowledge namespace.
// FileCount and TotalSizeMB are derived usage counters maintained by the
// stats aggregator, never edited directly.
type Tenant struct {
	ID          string    `db:"id" json:"id"`
	AccountID   string    `db:"account_id" json:"account_id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	FileCount   int       `db:"file_count" json:"file_count"`
	TotalSizeMB int64     `db:"total_size_mb" json:"total_size_mb"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Account aggregates usage across all tenants it owns.
type Account struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	FileCount   int       `db:"file_count" json:"file_count"`
	TotalSizeMB int64     `db:"total_size_mb" json:"total_size_mb"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
