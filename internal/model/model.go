// Package model defines shared data structures.
package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind distinguishes plain articles from video entries.
type Kind string

const (
	KindArticle Kind = "article"
	KindVideo   Kind = "video"
)

// FeedKind selects the parser dialect for a feed.
type FeedKind string

const (
	FeedRSS     FeedKind = "rss"
	FeedYouTube FeedKind = "youtube"
)

// FeedDescriptor identifies one feed in the catalog. Static, immutable.
type FeedDescriptor struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Kind FeedKind `json:"kind"`
}

// FeedKey returns the "category:name" key used to track per-feed state.
func FeedKey(category, name string) string {
	return category + ":" + name
}

// SplitFeedKey splits a feed key back into its category and feed name.
func SplitFeedKey(key string) (category, name string) {
	if i := strings.Index(key, ":"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// Article is a single normalized feed item. Immutable once constructed.
type Article struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"pubDate"`
	ImageURL    string    `json:"image,omitempty"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	Kind        Kind      `json:"type"`
	VideoID     string    `json:"videoId,omitempty"`
}

// Key returns the dedup identity: case-folded trimmed title plus link.
// Two articles with the same key are the same logical article.
func (a Article) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Title)) + "-" + strings.TrimSpace(a.Link)
}

// Valid reports whether the article carries the minimum required fields:
// a title, an absolute http(s) link, and for videos a video id.
func (a Article) Valid() bool {
	if strings.TrimSpace(a.Title) == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(a.Link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if a.Kind == KindVideo && a.VideoID == "" {
		return false
	}
	return true
}

// DayKey truncates the publish time to its calendar day in local time.
func (a Article) DayKey() time.Time {
	y, m, d := a.PublishedAt.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// VideoThumbnail returns the deterministic thumbnail URL for a video id.
func VideoThumbnail(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// FetchStatus classifies the outcome of one feed fetch task.
type FetchStatus string

const (
	StatusSuccess FetchStatus = "success"
	StatusEmpty   FetchStatus = "empty"
	StatusFailed  FetchStatus = "failed"
)

// FeedFetchOutcome is the transient result of a single fetch task,
// consumed immediately by the aggregation engine. Not persisted.
type FeedFetchOutcome struct {
	FeedKey   string
	Status    FetchStatus
	Articles  []Article
	FromCache bool
	Err       error
}
