// Package catalog holds the static mapping from category to feed descriptors.
package catalog

import (
	"sort"

	"github.com/newsgrid/newsgrid/internal/model"
)

// Catalog maps category names to ordered feed descriptor lists.
type Catalog struct {
	categories map[string][]model.FeedDescriptor
	order      []string
}

// New builds a catalog from a category map. Category order is alphabetical
// so iteration is deterministic.
func New(categories map[string][]model.FeedDescriptor) *Catalog {
	order := make([]string, 0, len(categories))
	for name := range categories {
		order = append(order, name)
	}
	sort.Strings(order)
	return &Catalog{categories: categories, order: order}
}

// Categories returns the category names in stable order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Feeds returns the descriptors registered under a category.
func (c *Catalog) Feeds(category string) []model.FeedDescriptor {
	return c.categories[category]
}

// Entry pairs a descriptor with its category for iteration.
type Entry struct {
	Category string
	Feed     model.FeedDescriptor
}

// All returns every catalog entry in stable category order.
func (c *Catalog) All() []Entry {
	var out []Entry
	for _, cat := range c.order {
		for _, fd := range c.categories[cat] {
			out = append(out, Entry{Category: cat, Feed: fd})
		}
	}
	return out
}

// Lookup finds the entry for a "category:name" feed key.
func (c *Catalog) Lookup(feedKey string) (Entry, bool) {
	category, name := model.SplitFeedKey(feedKey)
	for _, fd := range c.categories[category] {
		if fd.Name == name {
			return Entry{Category: category, Feed: fd}, true
		}
	}
	return Entry{}, false
}

// Total returns the number of feeds across all categories.
func (c *Catalog) Total() int {
	n := 0
	for _, feeds := range c.categories {
		n += len(feeds)
	}
	return n
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultFeeds())
}

func defaultFeeds() map[string][]model.FeedDescriptor {
	return map[string][]model.FeedDescriptor{
		"AI": {
			{Name: "Wired AI", URL: "https://www.wired.com/feed/tag/ai/latest/rss", Kind: model.FeedRSS},
			{Name: "Google DeepMind", URL: "https://deepmind.google/blog/rss.xml", Kind: model.FeedRSS},
			{Name: "Machine Learning Mastery", URL: "https://machinelearningmastery.com/blog/feed/", Kind: model.FeedRSS},
			{Name: "Berkeley AI Research", URL: "https://bair.berkeley.edu/blog/feed.xml", Kind: model.FeedRSS},
			{Name: "MIT Technology Review AI", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed", Kind: model.FeedRSS},
			{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Kind: model.FeedRSS},
			{Name: "Two Minute Papers", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCbfYPyITQ-7l4upoX8nvctg", Kind: model.FeedYouTube},
			{Name: "DeepLearningAI", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCcIXc5mJsHVYTZR1maL5l9w", Kind: model.FeedYouTube},
			{Name: "The AI Daily Brief", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCKelCK4ZaO6HeEI1KQjqzWA", Kind: model.FeedYouTube},
		},
		"Bioengineering": {
			{Name: "BioPharma Dive", URL: "https://www.biopharmadive.com/feeds/news/", Kind: model.FeedRSS},
			{Name: "Labiotech.eu", URL: "https://www.labiotech.eu/feed/", Kind: model.FeedRSS},
			{Name: "Nature Biotechnology", URL: "https://www.nature.com/nbt.rss", Kind: model.FeedRSS},
			{Name: "The Medical Futurist", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC8vwN4Sju7ER6KZzDADBKBQ", Kind: model.FeedYouTube},
			{Name: "Biohacking", URL: "https://hackaday.com/tag/biohacking/feed/", Kind: model.FeedRSS},
		},
		"CRM Tools": {
			{Name: "HubSpot", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCaAx1xeTgF3rs4rBPDq6-Kw", Kind: model.FeedYouTube},
			{Name: "Zoho CRM", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCy5GY9WtEg8SMgAZ_AiSlVw", Kind: model.FeedYouTube},
		},
		"Crypto": {
			{Name: "Alex Becker", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCKQvGU-qtjEthINeViNbn6A", Kind: model.FeedYouTube},
			{Name: "Lark Davis", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCl2oCaw8hdR_kbqyqd2klIA", Kind: model.FeedYouTube},
		},
		"Cybersecurity": {
			{Name: "The Hacker News", URL: "https://feeds.feedburner.com/TheHackersNews", Kind: model.FeedRSS},
			{Name: "Security Week", URL: "https://www.securityweek.com/feed/", Kind: model.FeedRSS},
			{Name: "Dark Reading", URL: "https://www.darkreading.com/rss.xml", Kind: model.FeedRSS},
			{Name: "Bleeping Computer", URL: "https://www.bleepingcomputer.com/feed/", Kind: model.FeedRSS},
			{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/", Kind: model.FeedRSS},
			{Name: "David Bombal", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCP7WmQ_U4GB3K51Od9QvM0w", Kind: model.FeedYouTube},
			{Name: "NetworkChuck", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC9x0AN7BWHpCDHSm9NiJFJQ", Kind: model.FeedYouTube},
		},
		"Flipper": {
			{Name: "Talking Sasquach", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCUoJk48pujh29p8zLsnD5PQ", Kind: model.FeedYouTube},
		},
		"Hydrogen": {
			{Name: "Hydrogen Cars Now", URL: "https://www.hydrogencarsnow.com/index.php/feed/", Kind: model.FeedRSS},
			{Name: "Hydrogen Fuel News", URL: "https://www.hydrogenfuelnews.com/feed/", Kind: model.FeedRSS},
		},
		"Marketing": {
			{Name: "Marketing AI Institute", URL: "https://www.marketingaiinstitute.com/blog/rss.xml", Kind: model.FeedRSS},
			{Name: "Synthesia", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC0Rqs6pyPoGaMT5HFMFdslg", Kind: model.FeedYouTube},
			{Name: "Zapier", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCEvsxF4Z12vwpwDUaU02yiA", Kind: model.FeedYouTube},
		},
		"Matrix": {
			{Name: "Defense News", URL: "https://www.defensenews.com/arc/outboundfeeds/rss/?outputType=xml", Kind: model.FeedRSS},
			{Name: "Technology", URL: "https://federalnewsnetwork.com/category/technology-main/feed/", Kind: model.FeedRSS},
			{Name: "Bloomberg Technology", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCrM7B7SL_g1edFOnmj-SDKg", Kind: model.FeedYouTube},
		},
		"Matrix FUTURE": {
			{Name: "Freethink", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UConJDkGk921yT9hISzFqpzw", Kind: model.FeedYouTube},
			{Name: "Future of Government", URL: "https://federalnewsnetwork.com/category/federal-insights/future-of-government/feed/", Kind: model.FeedRSS},
			{Name: "Artificial intelligence (Bioworld)", URL: "https://www.bioworld.com/rss/20", Kind: model.FeedRSS},
		},
		"NEW TECH": {
			{Name: "Technology (New Atlas)", URL: "https://newatlas.com/technology/index.rss", Kind: model.FeedRSS},
			{Name: "Rowan Cheung", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC8LUzR34nNX8KH3Edd0un1g", Kind: model.FeedYouTube},
		},
		"Open AI": {
			{Name: "OpenAI", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCXZCJLdBC09xxGZ6gcdrc6A", Kind: model.FeedYouTube},
		},
		"Phones": {
			{Name: "Android Authority", URL: "https://www.androidauthority.com/feed/", Kind: model.FeedRSS},
			{Name: "Apple Newsroom", URL: "https://www.apple.com/newsroom/rss-feed.rss", Kind: model.FeedRSS},
			{Name: "GSMArena", URL: "https://www.gsmarena.com/rss-news-reviews.php3", Kind: model.FeedRSS},
		},
		"Robotics": {
			{Name: "The Robot Report", URL: "https://www.therobotreport.com/feed/", Kind: model.FeedRSS},
			{Name: "Robohub", URL: "https://robohub.org/feed/", Kind: model.FeedRSS},
			{Name: "Boston Dynamics", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC7vVhkEfw4nOGp8TyDk7RcQ", Kind: model.FeedYouTube},
			{Name: "Unitree Robotics", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCsMbp4V8oxzHCMdOUP-3oWw", Kind: model.FeedYouTube},
		},
		"Space": {
			{Name: "NASA", URL: "https://www.nasa.gov/feed/", Kind: model.FeedRSS},
			{Name: "Space.com", URL: "https://www.space.com/feeds/all", Kind: model.FeedRSS},
			{Name: "SpaceNews", URL: "https://spacenews.com/feed/", Kind: model.FeedRSS},
			{Name: "Universe Today", URL: "https://www.universetoday.com/feed/", Kind: model.FeedRSS},
			{Name: "NASASpaceflight", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCSUu1lih2RifWkKtDOJdsBA", Kind: model.FeedYouTube},
			{Name: "Scott Manley", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCxzC4EngIsMrPmbm6Nxvb-A", Kind: model.FeedYouTube},
		},
		"Tech Reviews": {
			{Name: "Marques Brownlee", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCBJycsmduvYEL83R_U4JriQ", Kind: model.FeedYouTube},
			{Name: "Mrwhosetheboss", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCMiJRAwDNSNzuYeN2uWa0pA", Kind: model.FeedYouTube},
		},
		"Transportation": {
			{Name: "Automotive IQ News", URL: "https://www.automotive-iq.com/rss/news", Kind: model.FeedRSS},
			{Name: "Global Railway Review", URL: "https://feeds.feedburner.com/GlobalRailwayReview", Kind: model.FeedRSS},
			{Name: "The Tesla Space", URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCJjAIBWeY022ZNj_Cp_6wAw", Kind: model.FeedYouTube},
		},
		"Trends": {
			{Name: "TrendHunter AI", URL: "https://www.trendhunter.com/rss/category/Cool-Gadgets-and-Gifts", Kind: model.FeedRSS},
		},
	}
}
