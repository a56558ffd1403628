// Package sqlite implements the history cache on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/oaiguard/internal/types"
)

// ErrCorruptEntry is returned by Get when a stored payload cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// CacheStats holds cache statistics for the CLI and metrics.
type CacheStats struct {
	Entries int
	Oldest  time.Time // zero when empty
	Newest  time.Time
}

// Cache implements the history cache using SQLite
type Cache struct {
	db *sql.DB
}

// New opens (creating if needed) the cache database at path.
func New(ctx context.Context, path string) (*Cache, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		// WAL lets scan workers read while another upserts; busy_timeout
		// covers the short write lock.
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached diagnosis for sig, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, sig types.Signature) (*types.Diagnosis, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM triage_cache WHERE sig = ?`, string(sig)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var d types.Diagnosis
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrCorruptEntry, sig, err)
	}
	return &d, nil
}

// Put upserts the diagnosis for sig. The last writer wins.
func (c *Cache) Put(ctx context.Context, sig types.Signature, d types.Diagnosis, observedAt time.Time) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnosis: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO triage_cache (sig, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(sig) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(sig), string(payload), observedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries not updated since olderThan.
func (c *Cache) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM triage_cache WHERE updated_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return int(n), nil
}

// Stats returns the entry count and the update-time range.
func (c *Cache) Stats(ctx context.Context) (CacheStats, error) {
	var (
		stats          CacheStats
		oldest, newest sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(updated_at), MAX(updated_at) FROM triage_cache`,
	).Scan(&stats.Entries, &oldest, &newest)
	if err != nil {
		return stats, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if oldest.Valid {
		stats.Oldest = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		stats.Newest = time.Unix(newest.Int64, 0)
	}
	return stats, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}
