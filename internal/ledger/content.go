// File path: internal/ledger/content.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when no content record matches the requested id.
var ErrRecordNotFound = errors.New("content record not found")

// ValidateContent rejects records whose required type-specific fields are
// missing, before any network or database call is made.
func ValidateContent(record ContentRecord) error {
	if !record.Kind.Valid() {
		return fmt.Errorf("invalid content kind %q", record.Kind)
	}
	switch record.Kind {
	case KindFAQ:
		if strings.TrimSpace(record.Question) == "" || strings.TrimSpace(record.Answer) == "" {
			return errors.New("faq records require question and answer")
		}
	case KindProduct:
		if strings.TrimSpace(record.ProductName) == "" {
			return errors.New("product records require a name")
		}
	}
	return nil
}

// InsertContent persists a single content record.
func (s *Store) InsertContent(ctx context.Context, record ContentRecord) (ContentRecord, error) {
	if s == nil || s.db == nil {
		return ContentRecord{}, errors.New("catalog store not initialised")
	}
	record.TenantID = strings.TrimSpace(record.TenantID)
	if record.TenantID == "" {
		return ContentRecord{}, errors.New("tenant id required")
	}
	if err := ValidateContent(record); err != nil {
		return ContentRecord{}, err
	}
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := s.db.ExecContext(ctx, insertContentStmt, contentArgs(record)...); err != nil {
		return ContentRecord{}, fmt.Errorf("insert content record: %w", err)
	}
	return record, nil
}

// BulkInsertContent writes all records inside one transaction. Either every
// row lands or none does.
func (s *Store) BulkInsertContent(ctx context.Context, records []ContentRecord) ([]ContentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	if len(records) == 0 {
		return nil, errors.New("no content records to insert")
	}
	now := time.Now().UTC()
	prepared := make([]ContentRecord, 0, len(records))
	for i, record := range records {
		record.TenantID = strings.TrimSpace(record.TenantID)
		if record.TenantID == "" {
			return nil, fmt.Errorf("row %d: tenant id required", i+1)
		}
		if err := ValidateContent(record); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if strings.TrimSpace(record.ID) == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		prepared = append(prepared, record)
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin bulk insert: %w", err)
	}
	for _, record := range prepared {
		if _, err := tx.ExecContext(ctx, insertContentStmt, contentArgs(record)...); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("bulk insert content: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk insert: %w", err)
	}
	return prepared, nil
}

// ContentRecordByID retrieves a single content record.
func (s *Store) ContentRecordByID(ctx context.Context, recordID string) (ContentRecord, error) {
	if s == nil || s.db == nil {
		return ContentRecord{}, errors.New("catalog store not initialised")
	}
	var record ContentRecord
	if err := s.db.GetContext(ctx, &record, `SELECT * FROM content_records WHERE id = ?`, strings.TrimSpace(recordID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ContentRecord{}, ErrRecordNotFound
		}
		return ContentRecord{}, fmt.Errorf("select content record: %w", err)
	}
	return record, nil
}

// ListContent returns the tenant's content records, optionally filtered by kind.
func (s *Store) ListContent(ctx context.Context, tenantID string, kind ContentKind) ([]ContentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	records := []ContentRecord{}
	if kind == "" {
		if err := s.db.SelectContext(ctx, &records,
			`SELECT * FROM content_records WHERE tenant_id = ? ORDER BY created_at, id`, strings.TrimSpace(tenantID)); err != nil {
			return nil, fmt.Errorf("select content records: %w", err)
		}
		return records, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid content kind %q", kind)
	}
	if err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM content_records WHERE tenant_id = ? AND kind = ? ORDER BY created_at, id`,
		strings.TrimSpace(tenantID), kind); err != nil {
		return nil, fmt.Errorf("select content records: %w", err)
	}
	return records, nil
}

// SetContentIndexed flips the indexed flag on a record.
func (s *Store) SetContentIndexed(ctx context.Context, recordID string, indexed bool) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE content_records SET indexed = ?, updated_at = ? WHERE id = ?`,
		indexed, time.Now().UTC(), strings.TrimSpace(recordID))
	if err != nil {
		return fmt.Errorf("update content record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content record: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteContent removes a content record. Callers must complete the external
// vector cleanup before invoking this.
func (s *Store) DeleteContent(ctx context.Context, recordID string) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_records WHERE id = ?`, strings.TrimSpace(recordID))
	if err != nil {
		return fmt.Errorf("delete content record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content record: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

const insertContentStmt = `INSERT INTO content_records
        (id, tenant_id, kind, question, answer, product_name, sku, price, details, link, image, indexed, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func contentArgs(record ContentRecord) []interface{} {
	return []interface{}{
		record.ID, record.TenantID, record.Kind,
		record.Question, record.Answer,
		record.ProductName, record.SKU, record.Price, record.Details,
		record.Link, record.Image, record.Indexed,
		record.CreatedAt, record.UpdatedAt,
	}
}
