// Package filter derives filtered, sorted views of the aggregate set.
package filter

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// DateRange selects a calendar window relative to the caller's wall clock.
type DateRange string

const (
	RangeAll       DateRange = "all"
	RangeToday     DateRange = "today"
	RangeYesterday DateRange = "yesterday"
	RangeThisWeek  DateRange = "this-week"
	RangeThisMonth DateRange = "this-month"
	RangeLastWeek  DateRange = "last-week"
	RangeLastMonth DateRange = "last-month"
)

// CategoryAll matches every category.
const CategoryAll = "all"

// Query is one filter request.
type Query struct {
	Category string
	Range    DateRange
	Search   string
}

// Options tune the search heuristics. The word-overlap threshold has no
// stated rationale upstream, so it stays configurable rather than baked in.
type Options struct {
	// MinWordOverlap is the fraction of a multi-word query's words that
	// must match for an article to pass when no exact phrase match hits.
	MinWordOverlap float64
}

// DefaultOptions mirrors the lenient article-discovery threshold.
func DefaultOptions() Options {
	return Options{MinWordOverlap: 0.3}
}

// Apply returns the subset of articles matching the query, re-sorted
// descending by publish date. Pure function; the input slice is not
// modified.
func Apply(articles []model.Article, q Query, now time.Time) []model.Article {
	return ApplyWithOptions(articles, q, now, DefaultOptions())
}

// ApplyWithOptions is Apply with explicit search options.
func ApplyWithOptions(articles []model.Article, q Query, now time.Time, opts Options) []model.Article {
	var out []model.Article
	for _, a := range articles {
		if !matchCategory(a, q.Category) {
			continue
		}
		if !matchRange(a.PublishedAt, q.Range, now) {
			continue
		}
		if !matchSearch(a, q.Search, opts) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

func matchCategory(a model.Article, category string) bool {
	return category == "" || category == CategoryAll || a.Category == category
}

// matchRange evaluates calendar windows in local time. Weeks start on
// Sunday, consistently for this-week and last-week.
func matchRange(published time.Time, r DateRange, now time.Time) bool {
	if r == "" || r == RangeAll {
		return true
	}

	published = published.Local()
	today := dayStart(now.Local())

	switch r {
	case RangeToday:
		return dayStart(published).Equal(today)
	case RangeYesterday:
		return dayStart(published).Equal(today.AddDate(0, 0, -1))
	case RangeThisWeek:
		weekStart := today.AddDate(0, 0, -int(today.Weekday()))
		return !published.Before(weekStart)
	case RangeThisMonth:
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return !published.Before(monthStart)
	case RangeLastWeek:
		weekStart := today.AddDate(0, 0, -int(today.Weekday()))
		lastWeekStart := weekStart.AddDate(0, 0, -7)
		return !published.Before(lastWeekStart) && published.Before(weekStart)
	case RangeLastMonth:
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		lastMonthStart := monthStart.AddDate(0, -1, 0)
		return !published.Before(lastMonthStart) && published.Before(monthStart)
	default:
		return true
	}
}

// matchSearch is a deliberate case-insensitive substring match over title,
// description and source ("ai" matching inside "Mail" is accepted
// behavior). Multi-word queries that miss as an exact phrase fall back to
// the word-overlap heuristic.
func matchSearch(a model.Article, term string, opts Options) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	title := strings.ToLower(a.Title)
	description := strings.ToLower(a.Description)
	source := strings.ToLower(a.Source)

	if strings.Contains(title, term) || strings.Contains(description, term) || strings.Contains(source, term) {
		return true
	}

	words := strings.Fields(term)
	if len(words) < 2 || opts.MinWordOverlap <= 0 {
		return false
	}
	matched := 0
	for _, w := range words {
		if strings.Contains(title, w) || strings.Contains(description, w) || strings.Contains(source, w) {
			matched++
		}
	}
	needed := int(math.Ceil(float64(len(words)) * opts.MinWordOverlap))
	return matched >= needed
}

// dayStart truncates t to local midnight.
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Stats counts articles per date range, used for the date-filter badges.
type Stats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Yesterday int `json:"yesterday"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
	LastWeek  int `json:"lastWeek"`
	LastMonth int `json:"lastMonth"`
}

// DateStats tallies the per-range counts for a category ("all" for every
// article) against the given wall clock.
func DateStats(articles []model.Article, category string, now time.Time) Stats {
	var s Stats
	for _, a := range articles {
		if !matchCategory(a, category) {
			continue
		}
		s.Total++
		if matchRange(a.PublishedAt, RangeToday, now) {
			s.Today++
		}
		if matchRange(a.PublishedAt, RangeYesterday, now) {
			s.Yesterday++
		}
		if matchRange(a.PublishedAt, RangeThisWeek, now) {
			s.ThisWeek++
		}
		if matchRange(a.PublishedAt, RangeThisMonth, now) {
			s.ThisMonth++
		}
		if matchRange(a.PublishedAt, RangeLastWeek, now) {
			s.LastWeek++
		}
		if matchRange(a.PublishedAt, RangeLastMonth, now) {
			s.LastMonth++
		}
	}
	return s
}
