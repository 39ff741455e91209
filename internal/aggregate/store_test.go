package aggregate

import (
	"fmt"
	"testing"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

func article(title, link string, publishedAt time.Time) model.Article {
	return model.Article{
		Title:       title,
		Link:        link,
		Category:    "AI",
		Kind:        model.KindArticle,
		PublishedAt: publishedAt,
	}
}

func TestMergeFirstSeenWins(t *testing.T) {
	now := time.Now()
	s := NewStore(0)

	first := article("Breaking News", "https://a.example/x", now)
	first.Description = "original"
	added := s.Merge([]model.Article{first})
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	// Same identity key (casefolded title + link), different content.
	dup := article("  breaking news ", "https://a.example/x", now.Add(-time.Hour))
	dup.Description = "rewritten"
	if added := s.Merge([]model.Article{dup}); added != 0 {
		t.Fatalf("duplicate added = %d, want 0", added)
	}

	all := s.Articles()
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
	if all[0].Description != "original" {
		t.Errorf("first-seen article was replaced: %q", all[0].Description)
	}
}

func TestMergeIdempotent(t *testing.T) {
	now := time.Now()
	batch := []model.Article{
		article("One", "https://a.example/1", now),
		article("Two", "https://a.example/2", now.Add(-time.Minute)),
	}

	s := NewStore(0)
	s.Merge(batch)
	snapshot := s.Articles()

	if added := s.Merge(batch); added != 0 {
		t.Fatalf("re-merge added = %d, want 0", added)
	}
	again := s.Articles()
	if len(again) != len(snapshot) {
		t.Fatalf("size changed on re-merge: %d vs %d", len(again), len(snapshot))
	}
	for i := range again {
		if again[i].Key() != snapshot[i].Key() {
			t.Errorf("order changed at %d: %q vs %q", i, again[i].Key(), snapshot[i].Key())
		}
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	now := time.Now()
	s := NewStore(0)
	s.Merge([]model.Article{
		article("Old", "https://a.example/old", now.Add(-48*time.Hour)),
		article("New", "https://a.example/new", now),
	})
	s.Merge([]model.Article{
		article("Middle", "https://a.example/mid", now.Add(-24*time.Hour)),
	})

	all := s.Articles()
	for i := 1; i < len(all); i++ {
		if all[i].PublishedAt.After(all[i-1].PublishedAt) {
			t.Fatalf("not sorted descending at %d: %v after %v",
				i, all[i].PublishedAt, all[i-1].PublishedAt)
		}
	}
	if all[0].Title != "New" || all[2].Title != "Old" {
		t.Errorf("order = %q, %q, %q", all[0].Title, all[1].Title, all[2].Title)
	}
}

func TestMergeSkipsInvalid(t *testing.T) {
	s := NewStore(0)
	added := s.Merge([]model.Article{
		{Title: "No Link"},
		{Title: "Relative", Link: "/x", PublishedAt: time.Now()},
		article("Good", "https://a.example/good", time.Now()),
	})
	if added != 1 || s.Len() != 1 {
		t.Errorf("added = %d, len = %d, want 1 and 1", added, s.Len())
	}
}

func TestMergeEnforcesCap(t *testing.T) {
	now := time.Now()
	s := NewStore(3)

	var batch []model.Article
	for i := 0; i < 5; i++ {
		batch = append(batch, article(
			fmt.Sprintf("Article %d", i),
			fmt.Sprintf("https://a.example/%d", i),
			now.Add(-time.Duration(i)*time.Hour)))
	}
	s.Merge(batch)

	if s.Len() != 3 {
		t.Fatalf("len = %d, want cap 3", s.Len())
	}
	// The newest three survive.
	for _, a := range s.Articles() {
		if a.Title == "Article 3" || a.Title == "Article 4" {
			t.Errorf("oldest article survived the cap: %q", a.Title)
		}
	}
	// An evicted article's key is free again.
	evicted := article("Article 4", "https://a.example/4", now)
	if added := s.Merge([]model.Article{evicted}); added != 1 {
		t.Errorf("evicted key not released: added = %d", added)
	}
}

func TestByCategory(t *testing.T) {
	now := time.Now()
	s := NewStore(0)
	space := article("Launch", "https://a.example/launch", now)
	space.Category = "Space"
	s.Merge([]model.Article{
		article("Model Drop", "https://a.example/model", now.Add(-time.Minute)),
		space,
	})

	byCat := s.ByCategory()
	if len(byCat["AI"]) != 1 || len(byCat["Space"]) != 1 {
		t.Errorf("grouping wrong: %v", byCat)
	}
}
