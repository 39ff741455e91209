// Package server provides the HTTP API over the aggregation engine.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newsgrid/newsgrid/internal/aggregate"
	"github.com/newsgrid/newsgrid/internal/catalog"
	"github.com/newsgrid/newsgrid/internal/filter"
	"github.com/newsgrid/newsgrid/internal/model"
	"github.com/newsgrid/newsgrid/internal/page"
	"github.com/newsgrid/newsgrid/internal/store"
)

// Server is the main HTTP server.
type Server struct {
	catalog    *catalog.Catalog
	engine     *aggregate.Engine
	agg        *aggregate.Store
	persist    store.Store
	router     chi.Router
	pageSize   int
	searchOpts filter.Options
}

// New creates a server around the engine and its aggregate store.
func New(cat *catalog.Catalog, engine *aggregate.Engine, agg *aggregate.Store, persist store.Store, pageSize int, searchOpts filter.Options) *Server {
	if pageSize <= 0 {
		pageSize = page.DefaultPageSize
	}
	s := &Server{
		catalog:    cat,
		engine:     engine,
		agg:        agg,
		persist:    persist,
		pageSize:   pageSize,
		searchOpts: searchOpts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleArticles)
		r.Get("/categories", s.handleCategories)
		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)
		r.Get("/export-opml", s.handleExportOPML)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/retry", s.handleRetry)
	})

	// Cache-service shape; lets one instance back another's remote store.
	r.Get("/cache", s.handleCacheGet)
	r.Post("/cache/{category}", s.handleCachePost)

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

// Handler exposes the router (tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP listener.
func (s *Server) Start(addr string) error {
	log.Printf("server: listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// articleView augments an article with its rendered age.
type articleView struct {
	model.Article
	TimeAgo string `json:"timeAgo"`
}

// handleArticles serves the filtered, paginated view:
// GET /api/articles?category=&range=&q=&page=
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := filter.Query{
		Category: queryDefault(r, "category", filter.CategoryAll),
		Range:    filter.DateRange(queryDefault(r, "range", string(filter.RangeAll))),
		Search:   r.URL.Query().Get("q"),
	}
	pageNumber, _ := strconv.Atoi(r.URL.Query().Get("page"))
	now := time.Now()

	filtered := filter.ApplyWithOptions(s.agg.Articles(), q, now, s.searchOpts)
	p := page.Paginate(filtered, s.pageSize, pageNumber)

	groups := make([]map[string]any, 0, len(p.Groups))
	for _, g := range p.Groups {
		views := make([]articleView, 0, len(g.Articles))
		for _, a := range g.Articles {
			views = append(views, articleView{Article: a, TimeAgo: page.TimeAgo(a.PublishedAt, now)})
		}
		groups = append(groups, map[string]any{
			"label":    g.Label,
			"date":     g.Date,
			"articles": views,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups":  groups,
		"hasMore": p.HasMore,
		"showing": p.Showing,
		"total":   p.Total,
	})
}

// handleCategories lists catalog categories with current article counts.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	byCategory := s.agg.ByCategory()
	type categoryInfo struct {
		Name     string `json:"name"`
		Feeds    int    `json:"feeds"`
		Articles int    `json:"articles"`
	}
	out := make([]categoryInfo, 0, len(s.catalog.Categories()))
	for _, name := range s.catalog.Categories() {
		out = append(out, categoryInfo{
			Name:     name,
			Feeds:    len(s.catalog.Feeds(name)),
			Articles: len(byCategory[name]),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// handleStats serves per-range date statistics for the badge counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	category := queryDefault(r, "category", filter.CategoryAll)
	stats := filter.DateStats(s.agg.Articles(), category, time.Now())
	writeJSON(w, http.StatusOK, stats)
}

// handleStatus reports engine state and failure bookkeeping.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":          s.engine.State(),
		"totalArticles":  s.agg.Len(),
		"totalFeeds":     s.catalog.Total(),
		"failedFeedKeys": s.engine.FailedFeedKeys(),
	})
}

// handleExportOPML serves the catalog as a downloadable OPML document.
func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.ExportOPML("NewsGrid Feeds")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "export failed"})
		return
	}
	w.Header().Set("Content-Type", "text/x-opml")
	w.Header().Set("Content-Disposition", `attachment; filename="newsgrid.opml"`)
	w.Write(out)
}

// handleRefresh triggers a full aggregation pass in the background. A pass
// already holding the run gate is reported, not queued.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.engine.Running() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": aggregate.ErrRunInProgress.Error(),
			"state": s.engine.State(),
		})
		return
	}
	go func() {
		if _, err := s.engine.RunFull(context.Background()); err != nil {
			log.Printf("server: refresh: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

// handleRetry re-fetches the named failed feeds; an empty list retries all.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeedKeys []string `json:"feedKeys"`
	}
	if r.Body != nil {
		// An empty body means "retry everything failed".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	result, err := s.engine.Retry(r.Context(), req.FeedKeys)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalArticles":  result.TotalArticles,
		"failedFeedKeys": result.FailedFeedKeys,
	})
}

// handleCacheGet serves the aggregate snapshot in the cache-service shape.
func (s *Server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	data := make(map[string]store.Snapshot)
	now := time.Now()
	for category, articles := range s.agg.ByCategory() {
		data[category] = store.Snapshot{Articles: articles, UpdatedAt: now}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

// handleCachePost accepts a category snapshot, merges it and persists it.
func (s *Server) handleCachePost(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	var req struct {
		Articles []model.Article `json:"articles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}
	added := s.agg.Merge(req.Articles)
	if err := s.persist.Save(r.Context(), category, req.Articles); err != nil {
		log.Printf("server: cache save %s: %v", category, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "added": added})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
