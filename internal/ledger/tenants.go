// File path: internal/ledger/tenants.go
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

var (
	// ErrTenantNotFound is returned when no tenant matches the requested id.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrAccountNotFound is returned when no account matches the requested id.
	ErrAccountNotFound = errors.New("account not found")
)

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if s == nil || s.db == nil {
		return Account{}, errors.New("catalog store not initialised")
	}
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return Account{}, errors.New("account name required")
	}
	if strings.TrimSpace(account.ID) == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (id, name, file_count, total_size_mb, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, account.FileCount, account.TotalSizeMB, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

// Account retrieves a single account by id.
func (s *Store) Account(ctx context.Context, accountID string) (Account, error) {
	if s == nil || s.db == nil {
		return Account{}, errors.New("catalog store not initialised")
	}
	var account Account
	if err := s.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, strings.TrimSpace(accountID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

// UpdateAccountUsage writes the rolled-up usage counters onto the account row.
func (s *Store) UpdateAccountUsage(ctx context.Context, accountID string, fileCount int, totalSizeMB int64) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET file_count = ?, total_size_mb = ?, updated_at = ? WHERE id = ?`,
		fileCount, totalSizeMB, time.Now().UTC(), strings.TrimSpace(accountID))
	if err != nil {
		return fmt.Errorf("update account usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account usage: %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateTenant inserts a new tenant row under the owning account.
func (s *Store) CreateTenant(ctx context.Context, tenant Tenant) (Tenant, error) {
	if s == nil || s.db == nil {
		return Tenant{}, errors.New("catalog store not initialised")
	}
	tenant.AccountID = strings.TrimSpace(tenant.AccountID)
	tenant.Name = strings.TrimSpace(tenant.Name)
	if tenant.AccountID == "" || tenant.Name == "" {
		return Tenant{}, errors.New("account id and tenant name required")
	}
	if strings.TrimSpace(tenant.ID) == "" {
		tenant.ID = uuid.NewString()
	}
	if strings.TrimSpace(tenant.Slug) == "" {
		tenant.Slug = Slugify(tenant.Name)
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO tenants (id, account_id, name, slug, file_count, total_size_mb, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.AccountID, tenant.Name, tenant.Slug, tenant.FileCount, tenant.TotalSizeMB, tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		return Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	return tenant, nil
}

// Tenant retrieves a single tenant by id.
func (s *Store) Tenant(ctx context.Context, tenantID string) (Tenant, error) {
	if s == nil || s.db == nil {
		return Tenant{}, errors.New("catalog store not initialised")
	}
	var tenant Tenant
	if err := s.db.GetContext(ctx, &tenant, `SELECT * FROM tenants WHERE id = ?`, strings.TrimSpace(tenantID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, fmt.Errorf("select tenant: %w", err)
	}
	return tenant, nil
}

// TenantsForAccount lists every tenant owned by the account.
func (s *Store) TenantsForAccount(ctx context.Context, accountID string) ([]Tenant, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	tenants := []Tenant{}
	if err := s.db.SelectContext(ctx, &tenants,
		`SELECT * FROM tenants WHERE account_id = ? ORDER BY name`, strings.TrimSpace(accountID)); err != nil {
		return nil, fmt.Errorf("select tenants: %w", err)
	}
	return tenants, nil
}

// UpdateTenantUsage writes the derived usage counters onto the tenant row.
func (s *Store) UpdateTenantUsage(ctx context.Context, tenantID string, fileCount int, totalSizeMB int64) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET file_count = ?, total_size_mb = ?, updated_at = ? WHERE id = ?`,
		fileCount, totalSizeMB, time.Now().UTC(), strings.TrimSpace(tenantID))
	if err != nil {
		return fmt.Errorf("update tenant usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant usage: %w", err)
	}
	if affected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Slugify lowercases the name and collapses anything outside [a-z0-9-_] into
// dashes, producing the identifier used by external purge calls.
func Slugify(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "default"
	}
	var builder strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r + 32)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	slug := strings.Trim(builder.String(), "-")
	if slug == "" {
		return "default"
	}
	if len(slug) > 64 {
		slug = slug[:64]
	}
	return slug
}
