// File path: internal/index/client.go

// Package index talks to the external knowledge-index service. The core only
// triggers and observes the external state: per-tenant document upserts,
// single-document cleanup, and the full-tenant memory reset.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chatforge/kbcore/internal/common"
)

// Chunk is one indexable slice of a source document.
type Chunk struct {
	ID      string `json:"id"`
	FileID  string `json:"file_id"`
	Seq     int    `json:"seq"`
	Content string `json:"content"`
}

// Service is the surface the rest of the core consumes.
type Service interface {
	Available() bool
	UpsertChunks(ctx context.Context, tenantID string, chunks []Chunk, vectors [][]float32) error
	DeleteDoc(ctx context.Context, tenantID, docID string) error
	ResetTenant(ctx context.Context, tenantID, slug string) error
}

// Client is the HTTP implementation of Service.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	apiKey     string
	available  bool
}

var errNotFound = errors.New("resource not found")

// NewFromEnv constructs a client from environment configuration.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. An unreachable
// service yields a client that reports unavailable rather than an error, so
// startup does not depend on the external side being up.
func New(ctx context.Context, cfg Config) (*Client, error) {
	logger := common.Logger()
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		MaxConnsPerHost:     cfg.HTTPMaxConnsPerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(fmt.Sprintf("%s://%s:%s/api/v1", cfg.Scheme, cfg.Host, cfg.Port), "/"),
		apiKey:     cfg.APIKey,
	}
	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("index: service unreachable", "host", cfg.Host, "port", cfg.Port, "error", err)
		return client, nil
	}
	logger.Info("index: connection established", "host", cfg.Host, "port", cfg.Port)
	return client, nil
}

// NewWithBaseURL constructs a client against a fully formed base URL. Used by
// tests against httptest servers.
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		available:  true,
	}
}

// Available reports whether the service answered its last health probe.
func (c *Client) Available() bool {
	return c != nil && c.available
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("index client not configured")
	}
	if c.available {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = c.health(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		return err
	}
	c.available = true
	return nil
}

// UpsertChunks writes document chunks with their embeddings into the tenant's
// collection.
func (c *Client) UpsertChunks(ctx context.Context, tenantID string, chunks []Chunk, vectors [][]float32) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(chunks))
	documents := make([]string, 0, len(chunks))
	metadatas := make([]map[string]interface{}, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	for idx, chunk := range chunks {
		ids = append(ids, chunk.ID)
		documents = append(documents, chunk.Content)
		metadatas = append(metadatas, map[string]interface{}{
			"file_id": chunk.FileID,
			"seq":     chunk.Seq,
		})
		if idx < len(vectors) {
			embeddings = append(embeddings, vectors[idx])
		} else {
			embeddings = append(embeddings, nil)
		}
	}
	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embeddings,
	}
	endpoint := fmt.Sprintf("%s/tenants/%s/documents/upsert", c.baseURL, url.PathEscape(tenantID))
	return c.doRequest(ctx, http.MethodPost, endpoint, payload, nil)
}

// DeleteDoc removes one document from the tenant's collection. Callers block
// on this before deleting the matching local record: the external cleanup's
// completion signal gates local removal.
func (c *Client) DeleteDoc(ctx context.Context, tenantID, docID string) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/tenants/%s/documents/%s",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(docID))
	err := c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
	if errors.Is(err, errNotFound) {
		// Already gone externally; treat the cleanup as complete.
		return nil
	}
	return err
}

// ResetTenant invokes the full-tenant memory purge, keyed by tenant id and
// slug. The call is idempotent from this side; it is never retried
// automatically because it is costly and externally visible.
func (c *Client) ResetTenant(ctx context.Context, tenantID, slug string) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	payload := map[string]string{"slug": slug}
	endpoint := fmt.Sprintf("%s/tenants/%s/reset", c.baseURL, url.PathEscape(tenantID))
	return c.doRequest(ctx, http.MethodPost, endpoint, payload, nil)
}

func (c *Client) health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/heartbeat", c.baseURL)
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	if c == nil {
		return errors.New("index client not configured")
	}
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Close releases pooled resources associated with the client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

var _ Service = (*Client)(nil)
