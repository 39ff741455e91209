package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/newsgrid/newsgrid/internal/aggregate"
	"github.com/newsgrid/newsgrid/internal/cache"
	"github.com/newsgrid/newsgrid/internal/catalog"
	"github.com/newsgrid/newsgrid/internal/feed"
	"github.com/newsgrid/newsgrid/internal/filter"
	"github.com/newsgrid/newsgrid/internal/model"
	"github.com/newsgrid/newsgrid/internal/proxy"
	"github.com/newsgrid/newsgrid/internal/server"
	"github.com/newsgrid/newsgrid/internal/store"
)

type config struct {
	Addr            string
	StoreBackend    string
	SQLitePath      string
	PostgresDSN     string
	CacheServiceURL string
	OPMLPath        string
	CacheExpiry     time.Duration
	RefreshInterval time.Duration
	AttemptTimeout  time.Duration
	PageSize        int
	MaxArticles     int
	SearchOverlap   float64
	SkipInitialRun  bool
}

func loadConfig(args []string) (*config, error) {
	var cfg config
	fs := flag.NewFlagSet("newsgrid", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&cfg.StoreBackend, "store", "sqlite", "persistent store backend: sqlite, postgres or remote")
	fs.StringVar(&cfg.SQLitePath, "db", "newsgrid.db", "SQLite database path")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	fs.StringVar(&cfg.CacheServiceURL, "cache-url", "http://localhost:3001/api/cache", "remote cache service base URL")
	fs.StringVar(&cfg.OPMLPath, "opml", "", "OPML file overriding the built-in feed catalog")
	fs.DurationVar(&cfg.CacheExpiry, "cache-expiry", aggregate.DefaultCacheExpiry, "transient per-feed cache freshness window")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", time.Minute, "background refresh interval (0 disables)")
	fs.DurationVar(&cfg.AttemptTimeout, "attempt-timeout", 10*time.Second, "per-proxy-attempt timeout")
	fs.IntVar(&cfg.PageSize, "page-size", 12, "articles per page")
	fs.IntVar(&cfg.MaxArticles, "max-articles", aggregate.DefaultMaxArticles, "global cap on stored articles")
	fs.Float64Var(&cfg.SearchOverlap, "search-overlap", 0.3, "word-overlap fraction for multi-word search")
	fs.BoolVar(&cfg.SkipInitialRun, "skip-initial-run", false, "serve only seeded cache data, no startup aggregation")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("NEWSGRID"),
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func openStore(cfg *config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		return store.NewSQLite(cfg.SQLitePath)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend requires -postgres-dsn")
		}
		return store.NewPostgres(cfg.PostgresDSN)
	case "remote":
		return store.NewRemote(cfg.CacheServiceURL), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func loadCatalog(cfg *config) (*catalog.Catalog, error) {
	if cfg.OPMLPath == "" {
		return catalog.Default(), nil
	}
	f, err := os.Open(cfg.OPMLPath)
	if err != nil {
		return nil, fmt.Errorf("open opml: %w", err)
	}
	defer f.Close()
	return catalog.ParseOPML(f)
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.Printf("catalog: %d feeds across %d categories", cat.Total(), len(cat.Categories()))

	persist, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer persist.Close()

	agg := aggregate.NewStore(cfg.MaxArticles)
	engine := aggregate.NewEngine(aggregate.Config{
		Catalog:   cat,
		Fetcher:   proxy.NewFetcher(proxy.WithPolicy(proxy.Policy{PerAttemptTimeout: cfg.AttemptTimeout})),
		Parser:    feed.NewParser(),
		Transient: cache.New(),
		Aggregate: agg,
		Persist:   persist,

		CacheExpiry: cfg.CacheExpiry,
		Callbacks: aggregate.Callbacks{
			OnProgress: func(feedName string, loaded, total int) {
				if loaded%25 == 0 || loaded == total {
					log.Printf("progress: %d/%d feeds settled (last: %s)", loaded, total, feedName)
				}
			},
			OnComplete: func(byCategory map[string][]model.Article) {
				log.Printf("aggregation complete: %d categories populated", len(byCategory))
			},
			OnFeedFailed: func(feedKey string) {
				log.Printf("feed failed: %s", feedKey)
			},
		},
	})

	// Seed from the persistent cache for instant display before any
	// network activity.
	if seeded := engine.Seed(context.Background()); seeded > 0 {
		log.Printf("seeded %d articles from persistent cache", seeded)
	}

	if !cfg.SkipInitialRun {
		go func() {
			if _, err := engine.RunFull(context.Background()); err != nil {
				log.Printf("initial aggregation: %v", err)
			}
		}()
	}
	if cfg.RefreshInterval > 0 {
		engine.StartBackgroundRefresh(cfg.RefreshInterval)
		defer engine.Stop()
	}

	srv := server.New(cat, engine, agg, persist, cfg.PageSize, filter.Options{MinWordOverlap: cfg.SearchOverlap})
	if err := srv.Start(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
