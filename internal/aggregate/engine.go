package aggregate

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/newsgrid/newsgrid/internal/cache"
	"github.com/newsgrid/newsgrid/internal/catalog"
	"github.com/newsgrid/newsgrid/internal/metrics"
	"github.com/newsgrid/newsgrid/internal/model"
	"github.com/newsgrid/newsgrid/internal/store"
)

// ErrRunInProgress is returned when a pass is requested while another pass
// is still running. Runs are serialized, never interleaved.
var ErrRunInProgress = errors.New("aggregation already in progress")

// DefaultCacheExpiry is the transient cache freshness window.
const DefaultCacheExpiry = 5 * time.Minute

// State is the engine's run-state machine position.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateMerging   State = "merging"
	StatePersisted State = "persisted"
)

// Fetcher retrieves a raw feed body. Satisfied by proxy.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url, category string) (string, error)
}

// Parser converts a raw body into articles. Satisfied by feed.Parser.
type Parser interface {
	Parse(payload string, fd model.FeedDescriptor, category string) ([]model.Article, error)
}

// Callbacks are the only hooks the presentation layer needs.
type Callbacks struct {
	OnProgress   func(feedName string, loaded, total int)
	OnComplete   func(byCategory map[string][]model.Article)
	OnFeedFailed func(feedKey string)
}

// Result summarizes one aggregation pass.
type Result struct {
	TotalArticles  int
	Outcomes       []model.FeedFetchOutcome
	FailedFeedKeys []string
}

// Engine orchestrates fetching every catalog feed concurrently, merging
// outcomes into the aggregate store and persisting per category.
type Engine struct {
	catalog   *catalog.Catalog
	fetcher   Fetcher
	parser    Parser
	transient *cache.Cache
	agg       *Store
	persist   store.Store
	expiry    time.Duration
	callbacks Callbacks

	mu      sync.Mutex
	running bool
	state   State
	failed  map[string]struct{}

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Config collects the engine's collaborators.
type Config struct {
	Catalog     *catalog.Catalog
	Fetcher     Fetcher
	Parser      Parser
	Transient   *cache.Cache
	Aggregate   *Store
	Persist     store.Store
	CacheExpiry time.Duration
	Callbacks   Callbacks
}

// NewEngine wires an engine. A zero CacheExpiry uses DefaultCacheExpiry.
func NewEngine(cfg Config) *Engine {
	expiry := cfg.CacheExpiry
	if expiry <= 0 {
		expiry = DefaultCacheExpiry
	}
	return &Engine{
		catalog:   cfg.Catalog,
		fetcher:   cfg.Fetcher,
		parser:    cfg.Parser,
		transient: cfg.Transient,
		agg:       cfg.Aggregate,
		persist:   cfg.Persist,
		expiry:    expiry,
		callbacks: cfg.Callbacks,
		state:     StateIdle,
		failed:    make(map[string]struct{}),
		stopChan:  make(chan struct{}),
	}
}

// State returns the current run-state machine position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a pass currently holds the run gate.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// FailedFeedKeys returns the feeds marked failed by the last pass.
func (e *Engine) FailedFeedKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.failed))
	for k := range e.failed {
		keys = append(keys, k)
	}
	return keys
}

// Seed loads the persistent store once and merges it into the aggregate
// set, giving instant data before any network activity. A load failure is
// soft: aggregation proceeds from scratch.
func (e *Engine) Seed(ctx context.Context) int {
	snapshot, err := e.persist.Load(ctx)
	if err != nil {
		log.Printf("engine: persistent store load failed, starting cold: %v", err)
		return 0
	}
	total := 0
	for category, articles := range snapshot {
		added := e.agg.Merge(articles)
		total += added
		if added > 0 {
			log.Printf("engine: seeded %d articles for %s from persistent cache", added, category)
		}
	}
	metrics.AggregateArticles.Set(float64(e.agg.Len()))
	return total
}

// RunFull executes one complete aggregation pass: fetch every feed
// concurrently (settle-all), merge, persist. An individual feed failure
// never aborts the run.
func (e *Engine) RunFull(ctx context.Context) (Result, error) {
	if !e.acquire() {
		return Result{}, ErrRunInProgress
	}
	defer e.release()

	started := time.Now()
	entries := e.catalog.All()
	outcomes := e.fetchAll(ctx, entries, false)

	e.setState(StateMerging)
	var merged []model.Article
	newFailed := make(map[string]struct{})
	for _, o := range outcomes {
		switch o.Status {
		case model.StatusSuccess:
			merged = append(merged, o.Articles...)
		case model.StatusFailed:
			newFailed[o.FeedKey] = struct{}{}
			if e.callbacks.OnFeedFailed != nil {
				e.callbacks.OnFeedFailed(o.FeedKey)
			}
		}
		metrics.FeedFetchesTotal.WithLabelValues(string(o.Status)).Inc()
		if o.FromCache {
			metrics.CacheHitsTotal.Inc()
		}
	}
	added := e.agg.Merge(merged)
	e.setFailed(newFailed)
	log.Printf("engine: pass merged %d new articles from %d feeds (%d failed)",
		added, len(entries), len(newFailed))

	e.persistAll(ctx)
	e.setState(StatePersisted)

	metrics.AggregateArticles.Set(float64(e.agg.Len()))
	metrics.AggregationDuration.Observe(time.Since(started).Seconds())

	byCategory := e.agg.ByCategory()
	if e.callbacks.OnComplete != nil {
		e.callbacks.OnComplete(byCategory)
	}

	return Result{
		TotalArticles:  e.agg.Len(),
		Outcomes:       outcomes,
		FailedFeedKeys: keys(newFailed),
	}, nil
}

// Retry re-fetches only the named feeds, bypassing the freshness gate.
// An empty key list retries everything currently marked failed.
// Successfully retried keys leave the failed set.
func (e *Engine) Retry(ctx context.Context, feedKeys []string) (Result, error) {
	if !e.acquire() {
		return Result{}, ErrRunInProgress
	}
	defer e.release()

	if len(feedKeys) == 0 {
		feedKeys = e.FailedFeedKeys()
	}
	var entries []catalog.Entry
	for _, key := range feedKeys {
		if entry, ok := e.catalog.Lookup(key); ok {
			entries = append(entries, entry)
		} else {
			log.Printf("engine: retry requested for unknown feed %q", key)
		}
	}
	if len(entries) == 0 {
		return Result{TotalArticles: e.agg.Len()}, nil
	}

	outcomes := e.fetchAll(ctx, entries, true)

	e.setState(StateMerging)
	var merged []model.Article
	recovered := make([]string, 0, len(outcomes))
	stillFailed := make(map[string]struct{})
	for _, o := range outcomes {
		if o.Status == model.StatusFailed {
			stillFailed[o.FeedKey] = struct{}{}
			continue
		}
		merged = append(merged, o.Articles...)
		recovered = append(recovered, o.FeedKey)
	}
	e.agg.Merge(merged)

	e.mu.Lock()
	for _, key := range recovered {
		delete(e.failed, key)
	}
	for key := range stillFailed {
		e.failed[key] = struct{}{}
	}
	e.mu.Unlock()

	e.persistAll(ctx)
	e.setState(StatePersisted)
	metrics.AggregateArticles.Set(float64(e.agg.Len()))

	log.Printf("engine: retry recovered %d/%d feeds", len(recovered), len(entries))
	return Result{
		TotalArticles:  e.agg.Len(),
		Outcomes:       outcomes,
		FailedFeedKeys: e.FailedFeedKeys(),
	}, nil
}

// StartBackgroundRefresh launches the periodic lighter pass: force-fetch
// all feeds, merge only genuinely new articles, persist only when
// something new arrived. A tick that collides with a running pass is
// skipped, not queued.
func (e *Engine) StartBackgroundRefresh(interval time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopChan:
				return
			case <-ticker.C:
				if err := e.refreshPass(context.Background()); err != nil {
					if !errors.Is(err, ErrRunInProgress) {
						log.Printf("engine: background refresh error: %v", err)
					}
				}
			}
		}
	}()
}

// Stop halts the background refresh loop.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
}

func (e *Engine) refreshPass(ctx context.Context) error {
	if !e.acquire() {
		return ErrRunInProgress
	}
	defer e.release()

	entries := e.catalog.All()
	outcomes := e.fetchAll(ctx, entries, true)

	e.setState(StateMerging)
	var fresh []model.Article
	for _, o := range outcomes {
		if o.Status != model.StatusSuccess {
			continue
		}
		for _, a := range o.Articles {
			if !e.agg.Contains(a.Key()) {
				fresh = append(fresh, a)
			}
		}
	}
	if len(fresh) == 0 {
		e.setState(StateIdle)
		log.Printf("engine: background refresh found nothing new")
		return nil
	}

	added := e.agg.Merge(fresh)
	e.persistAll(ctx)
	e.setState(StatePersisted)
	metrics.AggregateArticles.Set(float64(e.agg.Len()))
	log.Printf("engine: background refresh merged %d new articles", added)

	if e.callbacks.OnComplete != nil {
		e.callbacks.OnComplete(e.agg.ByCategory())
	}
	return nil
}

// fetchAll runs one task per entry and settles all of them: every feed
// yields an outcome, failures included, and no failure cancels a sibling.
func (e *Engine) fetchAll(ctx context.Context, entries []catalog.Entry, force bool) []model.FeedFetchOutcome {
	e.setState(StateFetching)

	results := make(chan model.FeedFetchOutcome, len(entries))
	for _, entry := range entries {
		go func(entry catalog.Entry) {
			results <- e.fetchOne(ctx, entry, force)
		}(entry)
	}

	outcomes := make([]model.FeedFetchOutcome, 0, len(entries))
	for i := 0; i < len(entries); i++ {
		o := <-results
		outcomes = append(outcomes, o)
		if e.callbacks.OnProgress != nil {
			_, name := model.SplitFeedKey(o.FeedKey)
			e.callbacks.OnProgress(name, len(outcomes), len(entries))
		}
	}
	return outcomes
}

// fetchOne runs the cache-then-fetch-then-parse pipeline for one feed.
// All errors are converted into outcomes here; nothing escapes.
func (e *Engine) fetchOne(ctx context.Context, entry catalog.Entry, force bool) model.FeedFetchOutcome {
	key := model.FeedKey(entry.Category, entry.Feed.Name)

	if !force && e.transient.Fresh(key, e.expiry) {
		if cached, ok := e.transient.Get(key); ok {
			return model.FeedFetchOutcome{
				FeedKey:   key,
				Status:    model.StatusSuccess,
				Articles:  cached.Articles,
				FromCache: true,
			}
		}
	}

	body, err := e.fetcher.Fetch(ctx, entry.Feed.URL, entry.Category)
	if err != nil {
		return e.fallback(key, err)
	}

	articles, err := e.parser.Parse(body, entry.Feed, entry.Category)
	if err != nil {
		// Malformed payload; same retry treatment as an exhausted proxy.
		return e.fallback(key, err)
	}
	if len(articles) == 0 {
		return model.FeedFetchOutcome{FeedKey: key, Status: model.StatusEmpty}
	}

	e.transient.Put(key, articles)
	return model.FeedFetchOutcome{
		FeedKey:  key,
		Status:   model.StatusSuccess,
		Articles: articles,
	}
}

// fallback serves the stale cached entry when a fetch fails, else records
// the failure.
func (e *Engine) fallback(key string, cause error) model.FeedFetchOutcome {
	if cached, ok := e.transient.Get(key); ok && len(cached.Articles) > 0 {
		log.Printf("engine: %s failed, serving stale cache: %v", key, cause)
		return model.FeedFetchOutcome{
			FeedKey:   key,
			Status:    model.StatusSuccess,
			Articles:  cached.Articles,
			FromCache: true,
		}
	}
	log.Printf("engine: %s failed: %v", key, cause)
	return model.FeedFetchOutcome{FeedKey: key, Status: model.StatusFailed, Err: cause}
}

// persistAll writes each category snapshot independently. Save failures
// are logged, counted and otherwise ignored; persistence is best-effort.
func (e *Engine) persistAll(ctx context.Context) {
	for category, articles := range e.agg.ByCategory() {
		if err := e.persist.Save(ctx, category, articles); err != nil {
			metrics.PersistErrorsTotal.Inc()
			log.Printf("engine: persist %s failed: %v", category, err)
		}
	}
}

func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.running = false
	e.state = StateIdle
	e.mu.Unlock()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setFailed(failed map[string]struct{}) {
	e.mu.Lock()
	e.failed = failed
	e.mu.Unlock()
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
