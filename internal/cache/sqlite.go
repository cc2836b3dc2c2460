package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteCache implements Cache over a shared SQLite handle.
// One row per key; INSERT OR REPLACE gives last-write-wins semantics and
// row-level atomicity, so concurrent processes racing on the same file
// observe either the old or the new entry, never a partial write.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLite creates the cache table if needed and returns a cache with the
// given TTL. The handle is owned by the caller; Close does not close it.
func NewSQLite(db *sql.DB, ttl time.Duration) (*SQLiteCache, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", ttl)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS parse_cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			provider TEXT,
			model TEXT,
			prompt_tokens INTEGER DEFAULT 0,
			completion_tokens INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse_cache table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_parse_cache_created ON parse_cache(created_at)"); err != nil {
		return nil, fmt.Errorf("failed to create parse_cache index: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get returns the live entry for key. Expired entries are logically absent;
// the rows stay on disk until Cleanup reclaims them.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*Entry, error) {
	entry := &Entry{Key: key}
	var createdAt string
	err := c.db.QueryRowContext(ctx,
		`SELECT value, provider, model, prompt_tokens, completion_tokens, created_at
		 FROM parse_cache WHERE key = ?`, key,
	).Scan(&entry.Value, &entry.Provider, &entry.Model,
		&entry.Usage.PromptTokens, &entry.Usage.CompletionTokens, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache timestamp: %w", err)
	}
	entry.Usage.TotalTokens = entry.Usage.PromptTokens + entry.Usage.CompletionTokens

	if time.Since(entry.CreatedAt) > c.ttl {
		return nil, nil
	}
	return entry, nil
}

// Put upserts the entry. A zero CreatedAt is stamped with the current time.
func (c *SQLiteCache) Put(ctx context.Context, entry *Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO parse_cache
		 (key, value, provider, model, prompt_tokens, completion_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Key, []byte(entry.Value), entry.Provider, entry.Model,
		entry.Usage.PromptTokens, entry.Usage.CompletionTokens,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats reports entry count, stored value bytes, and how many rows are
// already past the TTL.
func (c *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	cutoff := time.Now().Add(-c.ttl).UTC().Format(time.RFC3339)

	var stats Stats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0),
		        COALESCE(SUM(created_at < ?), 0)
		 FROM parse_cache`, cutoff,
	).Scan(&stats.Entries, &stats.TotalBytes, &stats.ExpiredCount)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// Cleanup deletes entries older than the TTL and returns how many were
// removed. The cutoff is fixed before the delete runs, so entries written
// during the pass are never removed.
func (c *SQLiteCache) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).UTC().Format(time.RFC3339)

	result, err := c.db.ExecContext(ctx,
		"DELETE FROM parse_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup cache: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed cache entries: %w", err)
	}
	return removed, nil
}

// Close is a no-op; the database handle belongs to the storage layer.
func (c *SQLiteCache) Close() error {
	return nil
}
