package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// Remote talks to an external cache service over HTTP:
//
//	GET  {base}            -> {"success": bool, "data": {category: {"articles": [...]}}}
//	POST {base}/{category} <- {"articles": [...]}
//
// Any storage backend implementing this shape is substitutable, including
// another newsgrid instance.
type Remote struct {
	base   string
	client *http.Client
}

var _ Store = (*Remote)(nil)

// NewRemote creates a client for the cache service at base, e.g.
// "http://localhost:3001/api/cache".
func NewRemote(base string) *Remote {
	return &Remote{
		base:   base,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Close is a no-op; the remote service owns its own lifecycle.
func (r *Remote) Close() error { return nil }

// Load fetches every cached category from the service.
func (r *Remote) Load(ctx context.Context) (map[string][]model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cache service load: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cache service load: unexpected status %s", resp.Status)
	}

	var payload struct {
		Success bool `json:"success"`
		Data    map[string]struct {
			Articles []model.Article `json:"articles"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cache service load: decode: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("cache service load: service reported failure")
	}

	out := make(map[string][]model.Article, len(payload.Data))
	for category, entry := range payload.Data {
		out[category] = entry.Articles
	}
	return out, nil
}

// Save posts one category's snapshot to the service.
func (r *Remote) Save(ctx context.Context, category string, articles []model.Article) error {
	body, err := json.Marshal(struct {
		Articles []model.Article `json:"articles"`
	}{Articles: articles})
	if err != nil {
		return fmt.Errorf("cache service save %s: marshal: %w", category, err)
	}

	target := r.base + "/" + url.PathEscape(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache service save %s: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cache service save %s: unexpected status %s", category, resp.Status)
	}
	return nil
}
