// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/storage"
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
type CacheRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) (*CacheRepository, error) {
	seq, err := backend.GetSequence(cacheEntrySeq)
	if err != nil {
		return nil, err
	}

	return &CacheRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the insertion sequence.
func (r *CacheRepository) Close() error {
	return r.seq.Release()
}

// GetEntry retrieves the entry stored under key.
func (r *CacheRepository) GetEntry(ctx context.Context, key string) (*core.CacheEntry, error) {
	if key == "" {
		return nil, storage.ErrInvalidKey
	}
	var entry *core.CacheEntry
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		entry, err = readCacheEntry(tx, makeCacheEntryKey(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

// PutEntry stores entry, keeping the sequence and access count of an
// existing entry under the same key.
func (r *CacheRepository) PutEntry(ctx context.Context, entry *core.CacheEntry) (*core.CacheEntry, error) {
	if entry == nil || entry.Key == "" {
		return nil, storage.ErrInvalidKey
	}
	stored := *entry
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeCacheEntryKey(entry.Key)
		old, err := readCacheEntry(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			stored.Seq = old.Seq
			stored.AccessCount = old.AccessCount
		} else {
			seq, err := r.nextSeq()
			if err != nil {
				return err
			}
			stored.Seq = seq
			stored.AccessCount = 1
		}
		if stored.CachedAt.IsZero() {
			stored.CachedAt = time.Now().UTC()
		}
		return tx.Set(key, storage.MarshalCacheEntry(&stored))
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// IncrementAccess adds one to the entry's access count.
// Concurrent increments of one key may fail with badger.ErrConflict.
func (r *CacheRepository) IncrementAccess(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidKey
	}
	var count int64
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		k := makeCacheEntryKey(key)
		entry, err := readCacheEntry(tx, k)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}
		entry.AccessCount++
		count = entry.AccessCount
		return tx.Set(k, storage.MarshalCacheEntry(entry))
	})
	return count, err
}

// ListEntries returns every stored entry in key order.
func (r *CacheRepository) ListEntries(ctx context.Context, withResults bool) ([]*core.CacheEntry, error) {
	var results []*core.CacheEntry
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheEntryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.CacheEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalCacheEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if !withResults {
				entry.Result = nil
			}
			results = append(results, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteAll removes every cache entry. The insertion sequence is kept so
// entries written afterwards still order after everything seen before.
func (r *CacheRepository) DeleteAll(ctx context.Context) (int, error) {
	count, err := r.backend.CountPrefix(ctx, cacheEntryPrefix)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := r.backend.DropPrefix(ctx, cacheEntryPrefix); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CacheRepository) nextSeq() (uint64, error) {
	seq, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if seq == 0 {
		return r.seq.Next()
	}
	return seq, nil
}

// readCacheEntry returns nil, nil when key is absent.
func readCacheEntry(tx *badger.Txn, key []byte) (*core.CacheEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var entry *core.CacheEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalCacheEntry(val)
		return err
	})
	return entry, err
}
