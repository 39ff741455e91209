package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/newsgrid/newsgrid/internal/model"
)

// SQLite stores one row per category holding the JSON snapshot.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		category TEXT PRIMARY KEY,
		articles TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Load reads every category snapshot.
func (s *SQLite) Load(ctx context.Context) (map[string][]model.Article, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT category, articles FROM snapshots")
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Article)
	for rows.Next() {
		var category, blob string
		if err := rows.Scan(&category, &blob); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var articles []model.Article
		if err := json.Unmarshal([]byte(blob), &articles); err != nil {
			// A corrupt row loses one category, not the whole load.
			continue
		}
		out[category] = articles
	}
	return out, rows.Err()
}

// Save upserts one category's snapshot.
func (s *SQLite) Save(ctx context.Context, category string, articles []model.Article) error {
	blob, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", category, err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO snapshots (category, articles, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET articles = excluded.articles, updated_at = excluded.updated_at
	`, category, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save %s: %w", category, err)
	}
	return nil
}
