package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/newsgrid/newsgrid/internal/aggregate"
	"github.com/newsgrid/newsgrid/internal/cache"
	"github.com/newsgrid/newsgrid/internal/catalog"
	"github.com/newsgrid/newsgrid/internal/filter"
	"github.com/newsgrid/newsgrid/internal/model"
	"github.com/newsgrid/newsgrid/internal/store"
)

type noopFeeds struct{}

func (noopFeeds) Fetch(ctx context.Context, url, category string) (string, error) {
	return "", context.Canceled
}

func (noopFeeds) Parse(payload string, fd model.FeedDescriptor, category string) ([]model.Article, error) {
	return nil, nil
}

type recordingStore struct {
	mu    sync.Mutex
	saved map[string][]model.Article
}

var _ store.Store = (*recordingStore)(nil)

func (s *recordingStore) Load(ctx context.Context) (map[string][]model.Article, error) {
	return nil, nil
}

func (s *recordingStore) Save(ctx context.Context, category string, articles []model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]model.Article)
	}
	s.saved[category] = articles
	return nil
}

func (s *recordingStore) Close() error { return nil }

func testServer(t *testing.T) (*Server, *aggregate.Store, *recordingStore) {
	t.Helper()
	cat := catalog.New(map[string][]model.FeedDescriptor{
		"AI":    {{Name: "Alpha", URL: "https://a/feed", Kind: model.FeedRSS}},
		"Space": {{Name: "Gamma", URL: "https://g/feed", Kind: model.FeedRSS}},
	})
	agg := aggregate.NewStore(0)
	persist := &recordingStore{}
	engine := aggregate.NewEngine(aggregate.Config{
		Catalog:   cat,
		Fetcher:   noopFeeds{},
		Parser:    noopFeeds{},
		Transient: cache.New(),
		Aggregate: agg,
		Persist:   persist,
	})
	return New(cat, engine, agg, persist, 12, filter.DefaultOptions()), agg, persist
}

func seedArticles(agg *aggregate.Store) {
	now := time.Now()
	agg.Merge([]model.Article{
		{Title: "AI story", Link: "https://e/1", Category: "AI", Kind: model.KindArticle,
			Source: "Alpha", PublishedAt: now.Add(-time.Hour)},
		{Title: "Launch", Link: "https://e/2", Category: "Space", Kind: model.KindArticle,
			Source: "Gamma", PublishedAt: now.Add(-2 * time.Hour)},
		{Title: "Old launch", Link: "https://e/3", Category: "Space", Kind: model.KindArticle,
			Source: "Gamma", PublishedAt: now.Add(-72 * time.Hour)},
	})
}

func doJSON(t *testing.T, h http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: bad JSON: %v\n%s", method, target, err, rec.Body.String())
	}
	return rec, out
}

func TestArticlesEndpoint(t *testing.T) {
	s, agg, _ := testServer(t)
	seedArticles(agg)

	rec, out := doJSON(t, s.Handler(), http.MethodGet, "/api/articles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["total"].(float64) != 3 {
		t.Errorf("total = %v", out["total"])
	}
	groups := out["groups"].([]any)
	if len(groups) == 0 {
		t.Fatal("no groups")
	}
	first := groups[0].(map[string]any)
	articles := first["articles"].([]any)
	a0 := articles[0].(map[string]any)
	if a0["title"] != "AI story" {
		t.Errorf("first article = %v", a0["title"])
	}
	if a0["timeAgo"] == "" {
		t.Error("timeAgo missing")
	}
}

func TestArticlesCategoryFilter(t *testing.T) {
	s, agg, _ := testServer(t)
	seedArticles(agg)

	_, out := doJSON(t, s.Handler(), http.MethodGet, "/api/articles?category=Space", nil)
	if out["total"].(float64) != 2 {
		t.Errorf("total = %v, want 2", out["total"])
	}

	_, out = doJSON(t, s.Handler(), http.MethodGet, "/api/articles?q=launch", nil)
	if out["total"].(float64) != 2 {
		t.Errorf("search total = %v, want 2", out["total"])
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s, agg, _ := testServer(t)
	seedArticles(agg)

	_, out := doJSON(t, s.Handler(), http.MethodGet, "/api/categories", nil)
	cats := out["categories"].([]any)
	if len(cats) != 2 {
		t.Fatalf("categories = %d", len(cats))
	}
	first := cats[0].(map[string]any)
	if first["name"] != "AI" || first["feeds"].(float64) != 1 || first["articles"].(float64) != 1 {
		t.Errorf("AI entry = %v", first)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, agg, _ := testServer(t)
	seedArticles(agg)

	_, out := doJSON(t, s.Handler(), http.MethodGet, "/api/status", nil)
	if out["state"] != "idle" {
		t.Errorf("state = %v", out["state"])
	}
	if out["totalArticles"].(float64) != 3 || out["totalFeeds"].(float64) != 2 {
		t.Errorf("totals = %v / %v", out["totalArticles"], out["totalFeeds"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, agg, _ := testServer(t)
	seedArticles(agg)

	_, out := doJSON(t, s.Handler(), http.MethodGet, "/api/stats?category=Space", nil)
	if out["total"].(float64) != 2 {
		t.Errorf("stats total = %v", out["total"])
	}
}

func TestExportOPMLEndpoint(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/export-opml", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/x-opml" {
		t.Errorf("content type = %q", ct)
	}

	parsed, err := catalog.ParseOPML(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("exported document does not parse back: %v", err)
	}
	if feeds := parsed.Feeds("AI"); len(feeds) != 1 || feeds[0].URL != "https://a/feed" {
		t.Errorf("AI feeds = %+v", feeds)
	}
	if feeds := parsed.Feeds("Space"); len(feeds) != 1 {
		t.Errorf("Space feeds = %+v", feeds)
	}
}

// gatedFeeds blocks every fetch until the gate closes.
type gatedFeeds struct {
	gate chan struct{}
}

func (g gatedFeeds) Fetch(ctx context.Context, url, category string) (string, error) {
	<-g.gate
	return "", context.Canceled
}

func (g gatedFeeds) Parse(payload string, fd model.FeedDescriptor, category string) ([]model.Article, error) {
	return nil, nil
}

func TestRefreshReportsRunInProgress(t *testing.T) {
	cat := catalog.New(map[string][]model.FeedDescriptor{
		"AI": {{Name: "Alpha", URL: "https://a/feed", Kind: model.FeedRSS}},
	})
	agg := aggregate.NewStore(0)
	gate := make(chan struct{})
	engine := aggregate.NewEngine(aggregate.Config{
		Catalog:   cat,
		Fetcher:   gatedFeeds{gate: gate},
		Parser:    gatedFeeds{gate: gate},
		Transient: cache.New(),
		Aggregate: agg,
		Persist:   &recordingStore{},
	})
	s := New(cat, engine, agg, &recordingStore{}, 12, filter.DefaultOptions())

	done := make(chan error, 1)
	go func() {
		_, err := engine.RunFull(context.Background())
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for !engine.Running() {
		select {
		case <-deadline:
			t.Fatal("run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	rec, out := doJSON(t, s.Handler(), http.MethodPost, "/api/refresh", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %v", rec.Code, out)
	}
	if out["error"] == "" {
		t.Error("conflict response carries no error")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("gated run: %v", err)
	}

	rec, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/refresh", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status after idle = %d, want 202", rec.Code)
	}
}

func TestRetryEndpointUnknownKeys(t *testing.T) {
	s, _, _ := testServer(t)

	body, _ := json.Marshal(map[string]any{"feedKeys": []string{"Nope:Missing"}})
	rec, out := doJSON(t, s.Handler(), http.MethodPost, "/api/retry", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, out)
	}
}

func TestCacheServiceShape(t *testing.T) {
	s, agg, persist := testServer(t)
	seedArticles(agg)

	rec, out := doJSON(t, s.Handler(), http.MethodGet, "/cache", nil)
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("GET /cache: %d %v", rec.Code, out)
	}
	data := out["data"].(map[string]any)
	space := data["Space"].(map[string]any)
	if len(space["articles"].([]any)) != 2 {
		t.Errorf("Space snapshot = %v", space)
	}

	// Push a new category in; it merges and persists.
	payload, _ := json.Marshal(map[string]any{
		"articles": []model.Article{{
			Title: "Coin news", Link: "https://e/c", Category: "Crypto",
			Kind: model.KindArticle, PublishedAt: time.Now(),
		}},
	})
	rec, out = doJSON(t, s.Handler(), http.MethodPost, "/cache/Crypto", payload)
	if rec.Code != http.StatusOK || out["added"].(float64) != 1 {
		t.Fatalf("POST /cache/Crypto: %d %v", rec.Code, out)
	}
	if agg.Len() != 4 {
		t.Errorf("aggregate len = %d", agg.Len())
	}
	persist.mu.Lock()
	saved := len(persist.saved["Crypto"])
	persist.mu.Unlock()
	if saved != 1 {
		t.Errorf("persisted Crypto articles = %d", saved)
	}
}

func TestCachePostBadBody(t *testing.T) {
	s, _, _ := testServer(t)
	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/cache/AI", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
