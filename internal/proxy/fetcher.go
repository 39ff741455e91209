// Package proxy fetches feed URLs through an ordered list of CORS-bypass
// proxy endpoints with a direct fetch as last resort.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ErrProxiesExhausted is returned after every proxy and the direct
// fallback have failed for a URL.
var ErrProxiesExhausted = errors.New("all proxies and direct fetch failed")

// ErrMalformedPayload marks a body that is not plausibly a feed document.
var ErrMalformedPayload = errors.New("payload is not RSS/Atom XML")

// Endpoint is one proxy template. The target URL is appended query-escaped.
// JSONEnvelope marks the allorigins dialect, which wraps the body as
// {"contents": "<raw>"} and must be unwrapped.
type Endpoint struct {
	Base         string
	JSONEnvelope bool
}

// DefaultEndpoints is the shared proxy order used for every category unless
// overridden.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Base: "https://api.allorigins.win/get?url=", JSONEnvelope: true},
		{Base: "https://thingproxy.freeboard.io/fetch/"},
		{Base: "https://api.codetabs.com/v1/proxy?quest="},
		{Base: "https://corsproxy.io/?"},
	}
}

// Policy bounds each fetch attempt.
type Policy struct {
	PerAttemptTimeout time.Duration
}

// Fetcher tries proxies in order, then a direct fetch. It does not touch
// any cache; that is the caller's responsibility.
type Fetcher struct {
	client    *http.Client
	endpoints []Endpoint
	overrides map[string][]Endpoint // per-category proxy order
	policy    Policy
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithEndpoints replaces the shared proxy list.
func WithEndpoints(eps []Endpoint) Option {
	return func(f *Fetcher) { f.endpoints = eps }
}

// WithCategoryOverride sets a proxy order for one category.
func WithCategoryOverride(category string, eps []Endpoint) Option {
	return func(f *Fetcher) { f.overrides[category] = eps }
}

// WithPolicy replaces the attempt policy.
func WithPolicy(p Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// WithClient replaces the HTTP client (tests).
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a fetcher with the default proxy list and a 10s
// per-attempt timeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		endpoints: DefaultEndpoints(),
		overrides: make(map[string][]Endpoint),
		policy:    Policy{PerAttemptTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the raw feed body for target, trying each proxy in order
// and finally a direct request. It succeeds on the first non-empty body
// that is plausibly a feed document.
func (f *Fetcher) Fetch(ctx context.Context, target, category string) (string, error) {
	endpoints := f.endpoints
	if eps, ok := f.overrides[category]; ok {
		endpoints = eps
	}

	var lastErr error
	for _, ep := range endpoints {
		body, err := f.attempt(ctx, ep.Base+url.QueryEscape(target))
		if err != nil {
			lastErr = err
			continue
		}
		if ep.JSONEnvelope {
			if unwrapped, ok := unwrapEnvelope(body); ok {
				body = unwrapped
			}
		}
		if err := checkPayload(body); err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}

	// Direct fetch as last resort.
	log.Printf("proxy: all proxies failed for %s, trying direct fetch", target)
	body, err := f.attempt(ctx, target)
	if err == nil {
		if err := checkPayload(body); err == nil {
			return body, nil
		} else {
			lastErr = err
		}
	} else {
		lastErr = err
	}

	return "", fmt.Errorf("%w for %s: %v", ErrProxiesExhausted, target, lastErr)
}

// attempt performs one GET with an independent timeout. A timeout cancels
// only this attempt.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.policy.PerAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("empty response body")
	}
	return string(data), nil
}

// unwrapEnvelope extracts the contents field of an allorigins-style JSON
// envelope. Some responses come back raw even from the envelope dialect,
// so a parse failure is not fatal.
func unwrapEnvelope(body string) (string, bool) {
	var envelope struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return "", false
	}
	if envelope.Contents == "" {
		return "", false
	}
	return envelope.Contents, true
}

// checkPayload rejects empty bodies and HTML error pages masquerading as
// feeds. A plausible feed contains an <rss, <feed or <entry marker.
func checkPayload(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	hasMarker := strings.Contains(trimmed, "<rss") ||
		strings.Contains(trimmed, "<feed") ||
		strings.Contains(trimmed, "<entry")
	if !hasMarker {
		return ErrMalformedPayload
	}
	if strings.Contains(trimmed, "<html") && !strings.Contains(trimmed, "<rss") && !strings.Contains(trimmed, "<feed") {
		return ErrMalformedPayload
	}
	return nil
}
