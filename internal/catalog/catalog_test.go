package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/newsgrid/newsgrid/internal/model"
)

func TestCategoriesAreOrdered(t *testing.T) {
	c := New(map[string][]model.FeedDescriptor{
		"Space": {{Name: "NASA", URL: "https://n/feed", Kind: model.FeedRSS}},
		"AI":    {{Name: "Wired", URL: "https://w/feed", Kind: model.FeedRSS}},
		"Crypto": {
			{Name: "Lark", URL: "https://l/feed", Kind: model.FeedYouTube},
		},
	})

	got := c.Categories()
	want := []string{"AI", "Crypto", "Space"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
	if c.Total() != 3 {
		t.Errorf("Total = %d", c.Total())
	}
}

func TestLookup(t *testing.T) {
	c := New(map[string][]model.FeedDescriptor{
		"Space": {{Name: "NASA", URL: "https://n/feed", Kind: model.FeedRSS}},
	})

	entry, ok := c.Lookup("Space:NASA")
	if !ok || entry.Feed.URL != "https://n/feed" {
		t.Errorf("Lookup = %+v, %v", entry, ok)
	}
	if _, ok := c.Lookup("Space:Missing"); ok {
		t.Error("unknown feed found")
	}
	if _, ok := c.Lookup("garbage"); ok {
		t.Error("malformed key found")
	}
}

func TestDefaultCatalogIsWellFormed(t *testing.T) {
	c := Default()
	if c.Total() == 0 {
		t.Fatal("default catalog empty")
	}
	seen := make(map[string]bool)
	for _, e := range c.All() {
		if e.Feed.Name == "" || !strings.HasPrefix(e.Feed.URL, "http") {
			t.Errorf("bad descriptor %+v", e)
		}
		key := model.FeedKey(e.Category, e.Feed.Name)
		if seen[key] {
			t.Errorf("duplicate feed key %q", key)
		}
		seen[key] = true
		if e.Feed.Kind != model.FeedRSS && e.Feed.Kind != model.FeedYouTube {
			t.Errorf("%s: unknown kind %q", key, e.Feed.Kind)
		}
	}
}

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Feeds</title></head>
  <body>
    <outline text="Space">
      <outline text="NASA" title="NASA" type="rss" xmlUrl="https://www.nasa.gov/feed/"/>
      <outline text="Scott Manley" type="youtube" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=x"/>
    </outline>
    <outline text="Loose Feed" xmlUrl="https://loose.example/feed"/>
  </body>
</opml>`

func TestParseOPML(t *testing.T) {
	c, err := ParseOPML(strings.NewReader(sampleOPML))
	if err != nil {
		t.Fatalf("ParseOPML: %v", err)
	}

	feeds := c.Feeds("Space")
	if len(feeds) != 2 {
		t.Fatalf("Space feeds = %d, want 2", len(feeds))
	}
	if feeds[0].Kind != model.FeedRSS || feeds[1].Kind != model.FeedYouTube {
		t.Errorf("kinds = %q, %q", feeds[0].Kind, feeds[1].Kind)
	}

	loose := c.Feeds("Uncategorized")
	if len(loose) != 1 || loose[0].Name != "Loose Feed" {
		t.Errorf("uncategorized = %+v", loose)
	}
}

func TestParseOPMLEmpty(t *testing.T) {
	doc := `<?xml version="1.0"?><opml version="2.0"><head/><body/></opml>`
	if _, err := ParseOPML(strings.NewReader(doc)); err == nil {
		t.Fatal("want error for feedless document")
	}
}

func TestOPMLRoundTrip(t *testing.T) {
	orig := New(map[string][]model.FeedDescriptor{
		"AI": {
			{Name: "Wired AI", URL: "https://w/feed", Kind: model.FeedRSS},
			{Name: "Two Minute Papers", URL: "https://yt/feed", Kind: model.FeedYouTube},
		},
	})

	out, err := orig.ExportOPML("test")
	if err != nil {
		t.Fatalf("ExportOPML: %v", err)
	}
	parsed, err := ParseOPML(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	feeds := parsed.Feeds("AI")
	if len(feeds) != 2 {
		t.Fatalf("feeds = %d, want 2", len(feeds))
	}
	if feeds[1].Kind != model.FeedYouTube {
		t.Errorf("youtube kind lost in round trip: %q", feeds[1].Kind)
	}
	if feeds[0].URL != "https://w/feed" {
		t.Errorf("url = %q", feeds[0].URL)
	}
}
