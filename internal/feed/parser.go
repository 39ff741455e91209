// Package feed turns raw feed payloads into normalized articles.
package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/newsgrid/newsgrid/internal/model"
)

var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`)

// Parser converts raw XML payloads into articles. Safe for concurrent use:
// a fresh gofeed parser is created per call because gofeed parsers are not
// goroutine safe.
type Parser struct {
	now func() time.Time
}

// NewParser creates a parser using wall-clock time for missing dates.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// NewParserAt creates a parser with a fixed clock for tests.
func NewParserAt(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Parse dispatches on the descriptor kind. Malformed input never panics;
// it yields an empty slice and an error the caller records as a diagnostic.
func (p *Parser) Parse(payload string, fd model.FeedDescriptor, category string) ([]model.Article, error) {
	parsed, err := gofeed.NewParser().ParseString(payload)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fd.Name, err)
	}

	var articles []model.Article
	for _, item := range parsed.Items {
		var a model.Article
		var ok bool
		switch fd.Kind {
		case model.FeedYouTube:
			a, ok = p.youtubeArticle(item, fd.Name, category)
		default:
			a, ok = p.rssArticle(item, fd.Name, category)
		}
		if ok && a.Valid() {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

func (p *Parser) rssArticle(item *gofeed.Item, source, category string) (model.Article, bool) {
	description := firstNonEmpty(item.Description, item.Content)
	a := model.Article{
		Title:       stripHTML(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: stripHTML(description),
		PublishedAt: p.itemTime(item),
		ImageURL:    extractImage(item, description),
		Category:    category,
		Source:      source,
		Kind:        model.KindArticle,
	}
	return a, a.Title != "" && a.Link != ""
}

func (p *Parser) youtubeArticle(item *gofeed.Item, source, category string) (model.Article, bool) {
	link := strings.TrimSpace(item.Link)
	videoID := extractVideoID(link)
	if videoID == "" {
		videoID = ytExtensionID(item.Extensions)
	}
	if videoID == "" {
		// A video entry is unusable without an id.
		return model.Article{}, false
	}

	description := firstNonEmpty(
		mediaGroupDescription(item.Extensions),
		item.Description,
		item.Content,
	)
	a := model.Article{
		Title:       stripHTML(item.Title),
		Link:        link,
		Description: stripHTML(description),
		PublishedAt: p.itemTime(item),
		ImageURL:    model.VideoThumbnail(videoID),
		Category:    category,
		Source:      source,
		Kind:        model.KindVideo,
		VideoID:     videoID,
	}
	return a, a.Title != "" && a.Link != ""
}

// itemTime prefers the published date, then updated, then fetch time.
func (p *Parser) itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return p.now()
}

// extractVideoID pulls the id out of a watch?v= or youtu.be/ URL.
func extractVideoID(link string) string {
	m := videoIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// ytExtensionID reads the yt:videoId element YouTube feeds carry.
func ytExtensionID(exts ext.Extensions) string {
	for _, e := range exts["yt"]["videoId"] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

// mediaGroupDescription reads media:group > media:description.
func mediaGroupDescription(exts ext.Extensions) string {
	for _, group := range exts["media"]["group"] {
		for _, d := range group.Children["description"] {
			if v := strings.TrimSpace(d.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractImage looks for a thumbnail in order: the item's own image, a
// media:content or media:thumbnail element, the first <img src> inside the
// description HTML. Empty when nothing matches.
func extractImage(item *gofeed.Item, description string) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, name := range []string{"content", "thumbnail"} {
		for _, e := range item.Extensions["media"][name] {
			if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	for _, group := range item.Extensions["media"]["group"] {
		for _, t := range group.Children["thumbnail"] {
			if u := strings.TrimSpace(t.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	if strings.Contains(description, "<img") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
		if err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
				return strings.TrimSpace(src)
			}
		}
	}
	return ""
}

// stripHTML flattens markup into plain text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
