// Package store provides persistent aggregate-snapshot storage backends.
package store

import (
	"context"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// Store is the persistent cache keyed by category. Each category write is
// independent and idempotent; no cross-category transaction is required.
// SQLite, PostgreSQL and the remote HTTP service all satisfy this interface.
type Store interface {
	// Load returns the last saved snapshot for every category. Called once
	// at startup to seed instant display.
	Load(ctx context.Context) (map[string][]model.Article, error)

	// Save overwrites one category's snapshot.
	Save(ctx context.Context, category string, articles []model.Article) error

	Close() error
}

// Snapshot is one category's persisted state.
type Snapshot struct {
	Articles  []model.Article `json:"articles"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
