package drawio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Artifact cache client — talks to the drawio cache service
// ─────────────────────────────────────────────────────────────

// CacheClient stores and fetches rendered preview artifacts keyed by
// content fingerprint. All failures on the fetch path degrade to a cache
// miss; failures on the store path are reported to the caller for
// logging only — the in-memory working copy stays authoritative.
type CacheClient struct {
	baseURL string // e.g. http://127.0.0.1:41800/api/drawio-cache
	hasher  *Hasher
	hc      *http.Client
}

// NewCacheClient creates a client for the cache service at baseURL.
func NewCacheClient(baseURL string, hasher *Hasher) *CacheClient {
	return &CacheClient{
		baseURL: baseURL,
		hasher:  hasher,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

type cacheSaveRequest struct {
	XML string `json:"xml"`
	SVG string `json:"svg"`
}

type cacheSaveResponse struct {
	Hash string `json:"hash"`
}

// Store uploads artifact under the fingerprint of xml and returns the
// fingerprint the service acknowledged.
func (c *CacheClient) Store(ctx context.Context, xml, artifact string) (string, error) {
	body, err := json.Marshal(cacheSaveRequest{XML: xml, SVG: artifact})
	if err != nil {
		return "", fmt.Errorf("encode cache request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create cache request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("cache store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("cache store: http %d: %s", resp.StatusCode, string(msg))
	}

	var saved cacheSaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return "", fmt.Errorf("decode cache response: %w", err)
	}
	return saved.Hash, nil
}

// Fetch requests the artifact stored under fingerprint. Any non-success
// response or network error is a miss, never a hard failure. Concurrent
// fetches for different fingerprints are independent.
func (c *CacheClient) Fetch(ctx context.Context, fingerprint string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+fingerprint, nil)
	if err != nil {
		return "", false
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Fingerprint exposes the client's hasher so callers derive keys with
// the exact scheme the service indexes by.
func (c *CacheClient) Fingerprint(xml string) string {
	return c.hasher.Fingerprint(xml)
}
