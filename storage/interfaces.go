package storage

import (
	"context"

	"github.com/poiesic/pageindex/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// The shared backend is closed separately.
	Close() error
}

// CacheRepository stores research results addressed by cache key.
type CacheRepository interface {
	Repository

	// GetEntry retrieves the entry stored under key.
	// Returns ErrNotFound if no entry exists.
	GetEntry(ctx context.Context, key string) (*core.CacheEntry, error)

	// PutEntry stores entry under entry.Key, overwriting any stored result.
	// A new entry gets the next insertion sequence and an access count of 1.
	// An existing entry keeps its sequence and access count.
	// Returns the entry as stored.
	PutEntry(ctx context.Context, entry *core.CacheEntry) (*core.CacheEntry, error)

	// IncrementAccess adds one to the access count of the entry under key
	// and returns the new count. Returns ErrNotFound if no entry exists.
	IncrementAccess(ctx context.Context, key string) (int64, error)

	// ListEntries returns every stored entry in key order.
	// Results are omitted when withResults is false.
	ListEntries(ctx context.Context, withResults bool) ([]*core.CacheEntry, error)

	// DeleteAll removes every entry and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)
}

// HistoryRepository stores the queries served within each session.
type HistoryRepository interface {
	Repository

	// AppendHistory puts entry at the head of the session's list. Nothing
	// changes if the session already holds an entry with the same cache key.
	// The list is truncated to limit entries when limit is positive.
	AppendHistory(ctx context.Context, sessionID string, entry core.HistoryEntry, limit int) error

	// GetHistory returns the session's entries, newest first.
	// An unknown session yields an empty list.
	GetHistory(ctx context.Context, sessionID string) ([]core.HistoryEntry, error)
}
