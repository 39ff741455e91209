// Package aggregate owns the in-memory aggregate article set and the
// engine that fills it from the catalog.
package aggregate

import (
	"sort"
	"sync"

	"github.com/newsgrid/newsgrid/internal/model"
)

// DefaultMaxArticles bounds the aggregate set's memory footprint.
const DefaultMaxArticles = 5000

// Store holds the deduplicated, date-sorted aggregate article set. It is
// the single owner of that state; the filter and paginator receive copies.
type Store struct {
	mu       sync.RWMutex
	articles []model.Article
	seen     map[string]struct{}
	max      int
}

// NewStore creates an aggregate store capped at max articles. A max of
// zero or less uses DefaultMaxArticles.
func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultMaxArticles
	}
	return &Store{seen: make(map[string]struct{}), max: max}
}

// Merge adds articles to the set with first-seen-wins dedup on the
// identity key, re-sorts descending by publish date, and enforces the
// global cap by dropping the oldest overflow. Returns the number of
// genuinely new articles. Merging identical content is a no-op.
func (s *Store) Merge(articles []model.Article) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, a := range articles {
		if !a.Valid() {
			continue
		}
		key := a.Key()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.articles = append(s.articles, a)
		added++
	}
	if added == 0 {
		return 0
	}

	sort.SliceStable(s.articles, func(i, j int) bool {
		return s.articles[i].PublishedAt.After(s.articles[j].PublishedAt)
	})

	if len(s.articles) > s.max {
		for _, dropped := range s.articles[s.max:] {
			delete(s.seen, dropped.Key())
		}
		s.articles = s.articles[:s.max]
	}
	return added
}

// Contains reports whether an article with this identity key is present.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[key]
	return ok
}

// Articles returns a copy of the aggregate set, newest first.
func (s *Store) Articles() []model.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Article, len(s.articles))
	copy(out, s.articles)
	return out
}

// ByCategory groups a copy of the set by category, order preserved.
func (s *Store) ByCategory() map[string][]model.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.Article)
	for _, a := range s.articles {
		out[a.Category] = append(out[a.Category], a)
	}
	return out
}

// Len returns the current aggregate size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// Reset clears the set. Only used on explicit operator reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = nil
	s.seen = make(map[string]struct{})
}
