package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/storage"
)

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
// Each session is one record holding its list, newest first.
type HistoryRepository struct {
	backend *Backend
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) *HistoryRepository {
	return &HistoryRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is closed by its owner.
func (r *HistoryRepository) Close() error {
	return nil
}

// AppendHistory puts entry at the head of the session's list unless the
// session already holds its cache key.
func (r *HistoryRepository) AppendHistory(ctx context.Context, sessionID string, entry core.HistoryEntry, limit int) error {
	if sessionID == "" {
		return storage.ErrInvalidKey
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeHistoryKey(sessionID)
		old, err := readHistory(tx, key)
		if err != nil {
			return err
		}
		for _, e := range old {
			if e.CacheKey == entry.CacheKey {
				return nil
			}
		}
		list := make([]core.HistoryEntry, 0, len(old)+1)
		list = append(list, entry)
		list = append(list, old...)
		if limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		return tx.Set(key, storage.MarshalHistory(list))
	})
}

// GetHistory returns the session's entries, newest first.
func (r *HistoryRepository) GetHistory(ctx context.Context, sessionID string) ([]core.HistoryEntry, error) {
	if sessionID == "" {
		return nil, storage.ErrInvalidKey
	}
	var list []core.HistoryEntry
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		list, err = readHistory(tx, makeHistoryKey(sessionID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []core.HistoryEntry{}
	}
	return list, nil
}

func readHistory(tx *badger.Txn, key []byte) ([]core.HistoryEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var list []core.HistoryEntry
	err = item.Value(func(val []byte) error {
		var err error
		list, err = storage.UnmarshalHistory(val)
		return err
	})
	return list, err
}
