package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (category or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// ParseOPML reads an OPML document and builds a catalog from it. Top-level
// outlines become categories; feed outlines with type="youtube" are parsed
// with the YouTube dialect, everything else as RSS/Atom. Feeds outside any
// category land under "Uncategorized".
func ParseOPML(r io.Reader) (*Catalog, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	categories := make(map[string][]model.FeedDescriptor)
	var walk func(outlines []Outline, category string)
	walk = func(outlines []Outline, category string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				name := o.Title
				if name == "" {
					name = o.Text
				}
				kind := model.FeedRSS
				if strings.EqualFold(o.Type, "youtube") {
					kind = model.FeedYouTube
				}
				categories[category] = append(categories[category], model.FeedDescriptor{
					Name: name,
					URL:  o.XMLURL,
					Kind: kind,
				})
				continue
			}
			if len(o.Outlines) > 0 {
				name := o.Text
				if name == "" {
					name = o.Title
				}
				walk(o.Outlines, name)
			}
		}
	}
	walk(doc.Body.Outlines, "Uncategorized")

	if len(categories) == 0 {
		return nil, fmt.Errorf("opml contains no feeds")
	}
	return New(categories), nil
}

// ExportOPML generates an OPML document with one outline per category.
func (c *Catalog) ExportOPML(title string) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	for _, category := range c.order {
		catOutline := Outline{Text: category, Title: category}
		for _, fd := range c.categories[category] {
			typ := "rss"
			if fd.Kind == model.FeedYouTube {
				typ = "youtube"
			}
			catOutline.Outlines = append(catOutline.Outlines, Outline{
				Text:   fd.Name,
				Title:  fd.Name,
				Type:   typ,
				XMLURL: fd.URL,
			})
		}
		doc.Body.Outlines = append(doc.Body.Outlines, catOutline)
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
