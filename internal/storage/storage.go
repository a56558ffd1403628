// Package storage defines the triage history cache.
package storage

import (
	"context"
	"time"

	"github.com/steveyegge/oaiguard/internal/storage/sqlite"
	"github.com/steveyegge/oaiguard/internal/types"
)

// HistoryCache maps error signatures to the last diagnosis produced for them.
//
// Implementations must be safe for concurrent use: batch scans read and
// upsert from several goroutines.
type HistoryCache interface {
	// Get returns the stored diagnosis, or (nil, nil) when the signature is unknown.
	Get(ctx context.Context, sig types.Signature) (*types.Diagnosis, error)

	// Put inserts or replaces the entry for sig.
	Put(ctx context.Context, sig types.Signature, d types.Diagnosis, observedAt time.Time) error

	// Prune deletes entries last updated before olderThan and returns how many went.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Stats reports the size and age range of the cache.
	Stats(ctx context.Context) (CacheStats, error)

	// Lifecycle
	Close() error
}

// CacheStats summarizes the history cache.
type CacheStats = sqlite.CacheStats

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// NewHistoryCache opens the SQLite-backed history cache at cfg.Path.
func NewHistoryCache(ctx context.Context, cfg Config) (HistoryCache, error) {
	return sqlite.New(ctx, cfg.Path)
}
