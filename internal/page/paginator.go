// Package page slices filtered article views into date-grouped pages.
package page

import (
	"strconv"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// DefaultPageSize matches the original twelve-card layout.
const DefaultPageSize = 12

// Group is one calendar day's articles within a page.
type Group struct {
	Label    string          `json:"label"`
	Date     time.Time       `json:"date"`
	Articles []model.Article `json:"articles"`
}

// Page is one paginated slice of a filtered view. Groups follow the input
// sort order (most recent day first); a page boundary may split a group's
// tail, and the caller accumulates groups across loadMore calls.
type Page struct {
	Groups  []Group `json:"groups"`
	HasMore bool    `json:"hasMore"`
	Showing int     `json:"showing"`
	Total   int     `json:"total"`
}

// Paginate slices the filtered articles into the requested page, grouped
// by calendar day. Page numbers start at 1. Only the total item count
// determines HasMore, never group boundaries.
func Paginate(articles []model.Article, pageSize, pageNumber int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageNumber < 1 {
		pageNumber = 1
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > len(articles) {
		start = len(articles)
	}
	if end > len(articles) {
		end = len(articles)
	}

	p := Page{
		HasMore: len(articles) > pageNumber*pageSize,
		Showing: end,
		Total:   len(articles),
	}

	var current *Group
	for _, a := range articles[start:end] {
		day := a.DayKey()
		if current == nil || !current.Date.Equal(day) {
			p.Groups = append(p.Groups, Group{
				Label: DayLabel(day, time.Now()),
				Date:  day,
			})
			current = &p.Groups[len(p.Groups)-1]
		}
		current.Articles = append(current.Articles, a)
	}
	return p
}

// DayLabel renders a calendar day as Today, Yesterday, or a long date.
func DayLabel(day, now time.Time) string {
	y, m, d := now.Local().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Monday, January 2, 2006")
	}
}

// TimeAgo renders a rough human-readable age for an article timestamp.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	case d < 30*24*time.Hour:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago"
	default:
		return strconv.Itoa(int(d.Hours()/24/30)) + "mo ago"
	}
}
