// File path: internal/storage/store_test.go
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestUploadAndList(t *testing.T) {
	store := newTestStore(t)

	file, err := store.Upload("t1", "guide.csv", strings.NewReader("q,a\n"))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if file.ID == "" || file.Name != "guide.csv" || file.Size != 4 {
		t.Fatalf("unexpected metadata: %+v", file)
	}
	if file.MimeType == "" {
		t.Fatalf("expected a mime type for .csv")
	}

	files, err := store.List("t1")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(files) != 1 || files[0].ID != file.ID {
		t.Fatalf("expected uploaded file listed, got %+v", files)
	}
}

func TestListIsolatesTenants(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Upload("t1", "a.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	files, err := store.List("t2")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty listing for other tenant, got %d files", len(files))
	}
}

func TestListSkipsPendingFiles(t *testing.T) {
	store := newTestStore(t)
	dir := filepath.Join(store.Root(), "t1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, pendingPrefix+"abc"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write pending: %v", err)
	}

	files, err := store.List("t1")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected pending upload invisible, got %+v", files)
	}
}

func TestOpenReadsBackUploadedContent(t *testing.T) {
	store := newTestStore(t)
	file, err := store.Upload("t1", "doc.txt", strings.NewReader("hello knowledge"))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	reader, meta, err := store.Open("t1", file.ID)
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read returned error: %v", err)
	}
	if string(content) != "hello knowledge" {
		t.Fatalf("unexpected content %q", content)
	}
	if meta.Name != "doc.txt" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	store := newTestStore(t)
	file, err := store.Upload("t1", "doc.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	if err := store.Delete("t1", file.ID); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if _, err := store.Stat("t1", file.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound after delete, got %v", err)
	}
}

func TestDeleteUnknownFile(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("t1", "nope"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestSanitizeNameStripsPathComponents(t *testing.T) {
	store := newTestStore(t)
	file, err := store.Upload("t1", "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if strings.ContainsAny(file.Name, "/\\") {
		t.Fatalf("expected path components stripped, got %q", file.Name)
	}

	path := filepath.Join(store.Root(), "t1", file.ID+"__"+file.Name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file stored inside the tenant folder: %v", err)
	}
}
