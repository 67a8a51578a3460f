package verify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"counsel/core/internal/citation"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS citation_lookups (
  normalized_form TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  matched_url TEXT NOT NULL DEFAULT '',
  checked_at TEXT NOT NULL
);`

// Cache persists lookup outcomes across invocations so repeat citations in
// later commands skip the network entirely. Entries expire after maxAge.
type Cache struct {
	db     *sql.DB
	maxAge time.Duration
}

func NewCache(db *sql.DB, maxAge time.Duration) (*Cache, error) {
	if db == nil {
		return nil, errors.New("cache db is required")
	}
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	if _, err := db.Exec(createCacheTable); err != nil {
		return nil, fmt.Errorf("create citation_lookups table: %w", err)
	}
	return &Cache{db: db, maxAge: maxAge}, nil
}

func (c *Cache) Lookup(ctx context.Context, normalized string) (Outcome, bool, error) {
	query := `SELECT status, source, matched_url, checked_at FROM citation_lookups WHERE normalized_form = ? LIMIT 1;`

	var status, source, matchedURL, checkedAt string
	err := c.db.QueryRowContext(ctx, query, normalized).Scan(&status, &source, &matchedURL, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("lookup citation cache: %w", err)
	}

	checked, err := time.Parse(time.RFC3339, checkedAt)
	if err != nil || time.Since(checked) > c.maxAge {
		return Outcome{}, false, nil
	}

	return Outcome{
		Normalized: normalized,
		Status:     citation.Status(status),
		Source:     source,
		MatchedURL: matchedURL,
	}, true, nil
}

func (c *Cache) Save(ctx context.Context, outcome Outcome) error {
	query := `
INSERT INTO citation_lookups (normalized_form, status, source, matched_url, checked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(normalized_form) DO UPDATE SET
  status = excluded.status,
  source = excluded.source,
  matched_url = excluded.matched_url,
  checked_at = excluded.checked_at;`

	_, err := c.db.ExecContext(ctx, query,
		outcome.Normalized,
		string(outcome.Status),
		outcome.Source,
		outcome.MatchedURL,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save citation lookup: %w", err)
	}
	return nil
}
