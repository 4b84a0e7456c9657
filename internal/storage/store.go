// File path: internal/storage/store.go
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/kbcore/internal/common"
)

// ErrFileNotFound is returned when no stored file matches the requested id.
var ErrFileNotFound = errors.New("source file not found")

const pendingPrefix = ".pending-"

// SourceFile describes one raw document stored in a tenant's folder.
type SourceFile struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	MimeType   string    `json:"mime_type"`
}

// Store keeps raw source files on disk, one folder per tenant.
type Store struct {
	root string
}

// NewStore constructs a Store rooted at the configured directory.
func NewStore(cfg Config) (*Store, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("storage root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute directory files are stored under.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Upload persists the reader's contents into the tenant folder. The file is
// written under a hidden pending name and renamed into place only once fully
// written, so a listing never observes a partial upload.
func (s *Store) Upload(tenantID, name string, r io.Reader) (SourceFile, error) {
	if s == nil {
		return SourceFile{}, errors.New("storage store not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return SourceFile{}, errors.New("tenant id required")
	}
	cleaned := sanitizeName(name)
	if cleaned == "" {
		return SourceFile{}, fmt.Errorf("invalid file name: %q", name)
	}
	dir := filepath.Join(s.root, tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SourceFile{}, fmt.Errorf("create tenant folder: %w", err)
	}
	id := uuid.NewString()
	pendingPath := filepath.Join(dir, pendingPrefix+id)
	finalPath := filepath.Join(dir, id+"__"+cleaned)

	dst, err := os.OpenFile(pendingPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return SourceFile{}, fmt.Errorf("create destination file: %w", err)
	}
	size, err := io.Copy(dst, r)
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(pendingPath)
		return SourceFile{}, fmt.Errorf("write destination file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(pendingPath)
		return SourceFile{}, fmt.Errorf("close destination file: %w", err)
	}
	if err := os.Rename(pendingPath, finalPath); err != nil {
		_ = os.Remove(pendingPath)
		return SourceFile{}, fmt.Errorf("finalize upload: %w", err)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return SourceFile{}, fmt.Errorf("stat uploaded file: %w", err)
	}
	return SourceFile{
		ID:         id,
		TenantID:   tenantID,
		Name:       cleaned,
		Size:       size,
		UploadedAt: info.ModTime().UTC(),
		MimeType:   mimeTypeFor(cleaned),
	}, nil
}

// List returns every stored file for the tenant, newest first. A missing
// tenant folder is an empty listing, not an error.
func (s *Store) List(tenantID string) ([]SourceFile, error) {
	if s == nil {
		return nil, errors.New("storage store not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("tenant id required")
	}
	dir := filepath.Join(s.root, tenantID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []SourceFile{}, nil
		}
		return nil, fmt.Errorf("read tenant folder: %w", err)
	}
	files := make([]SourceFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), pendingPrefix) {
			continue
		}
		id, name, ok := splitStoredName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			common.Logger().Warn("storage: stat file failed", "file", entry.Name(), "error", err)
			continue
		}
		files = append(files, SourceFile{
			ID:         id,
			TenantID:   tenantID,
			Name:       name,
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC(),
			MimeType:   mimeTypeFor(name),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].Name < files[j].Name
		}
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	return files, nil
}

// Stat returns the metadata for a single stored file.
func (s *Store) Stat(tenantID, fileID string) (SourceFile, error) {
	path, file, err := s.locate(tenantID, fileID)
	if err != nil {
		return SourceFile{}, err
	}
	_ = path
	return file, nil
}

// Open returns a reader over the stored file's contents along with its
// metadata. The caller owns closing the reader.
func (s *Store) Open(tenantID, fileID string) (io.ReadCloser, SourceFile, error) {
	path, file, err := s.locate(tenantID, fileID)
	if err != nil {
		return nil, SourceFile{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, SourceFile{}, fmt.Errorf("open source file: %w", err)
	}
	return f, file, nil
}

// Delete removes a stored file. Permission failures on the raw file are
// swallowed with a warning: the job-ledger unlink is the operation's real
// success criterion.
func (s *Store) Delete(tenantID, fileID string) error {
	path, _, err := s.locate(tenantID, fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrPermission) {
			common.Logger().Warn("storage: delete permission denied", "tenant", tenantID, "file", fileID, "error", err)
			return nil
		}
		return fmt.Errorf("delete source file: %w", err)
	}
	return nil
}

func (s *Store) locate(tenantID, fileID string) (string, SourceFile, error) {
	if s == nil {
		return "", SourceFile{}, errors.New("storage store not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	fileID = strings.TrimSpace(fileID)
	if tenantID == "" || fileID == "" {
		return "", SourceFile{}, errors.New("tenant id and file id required")
	}
	files, err := s.List(tenantID)
	if err != nil {
		return "", SourceFile{}, err
	}
	for _, file := range files {
		if file.ID == fileID {
			return filepath.Join(s.root, tenantID, file.ID+"__"+file.Name), file, nil
		}
	}
	return "", SourceFile{}, ErrFileNotFound
}

func splitStoredName(stored string) (id, name string, ok bool) {
	idx := strings.Index(stored, "__")
	if idx <= 0 || idx+2 >= len(stored) {
		return "", "", false
	}
	return stored[:idx], stored[idx+2:], true
}

func sanitizeName(name string) string {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "." || cleaned == string(filepath.Separator) {
		return ""
	}
	cleaned = strings.ReplaceAll(cleaned, "__", "_")
	return cleaned
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
