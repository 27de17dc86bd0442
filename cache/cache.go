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


package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/storage"
)

// Key returns the cache key for a query: the hex SHA-256 digest of its
// normalized form.
func Key(query string) string {
	sum := sha256.Sum256([]byte(core.NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// Manager stores and serves prior research results.
// A Manager without a repository is a pass-through: every Get misses and
// every Put is dropped.
type Manager struct {
	repo   storage.CacheRepository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// WithClock sets the time source used for CachedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		if now == nil {
			return errors.New("cache: nil clock")
		}
		m.now = now
		return nil
	}
}

// New creates a Manager over repo. A nil repo yields a pass-through manager.
func New(repo storage.CacheRepository, opts ...Option) (*Manager, error) {
	m := &Manager{
		repo:   repo,
		logger: slog.Default().With("component", "cache"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if repo == nil {
		m.logger.Warn("no cache repository configured, caching is disabled")
	}
	return m, nil
}

// Enabled reports whether results are actually stored.
func (m *Manager) Enabled() bool {
	return m.repo != nil
}

// Key returns the cache key for query.
func (m *Manager) Key(query string) string {
	return Key(query)
}

// Get returns the cached result for query, if any. A hit increments the
// entry's access count; a failed increment is logged and the hit still served.
// Storage failures are logged and reported as a miss.
func (m *Manager) Get(ctx context.Context, query string) (*core.ResearchOutput, bool) {
	if m.repo == nil {
		return nil, false
	}
	key := Key(query)
	entry, err := m.repo.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.logger.Info("cache miss", "query", preview(query))
		} else {
			m.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	if entry.Result == nil {
		m.logger.Warn("cache entry has no result", "key", key)
		return nil, false
	}

	count, err := m.repo.IncrementAccess(ctx, key)
	if err != nil {
		m.logger.Warn("failed to increment access count", "key", key, "error", err)
	} else {
		m.logger.Info("cache hit", "query", preview(query), "access_count", count)
	}
	return entry.Result, true
}

// Put stores result for query. Storing again under the same key overwrites
// the result and leaves the access count alone. Storage failures are logged
// and returned; callers may ignore them.
func (m *Manager) Put(ctx context.Context, query string, result *core.ResearchOutput) error {
	if m.repo == nil || result == nil {
		return nil
	}
	entry := &core.CacheEntry{
		Key:             Key(query),
		NormalizedQuery: core.NormalizeQuery(query),
		Query:           query,
		CachedAt:        m.now(),
		Result:          result,
	}
	stored, err := m.repo.PutEntry(ctx, entry)
	if err != nil {
		m.logger.Warn("cache write failed", "key", entry.Key, "error", err)
		return err
	}
	m.logger.Info("cached result", "query", preview(query), "access_count", stored.AccessCount)
	return nil
}

// TopByAccessCount returns up to limit entries, most accessed first. Ties go
// to the entry cached earlier. Results are not loaded. A limit of zero or
// less returns every entry.
func (m *Manager) TopByAccessCount(ctx context.Context, limit int) ([]*core.CacheEntry, error) {
	if m.repo == nil {
		return nil, ErrDisabled
	}
	entries, err := m.repo.ListEntries(ctx, false)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b *core.CacheEntry) int {
		if a.AccessCount != b.AccessCount {
			if a.AccessCount > b.AccessCount {
				return -1
			}
			return 1
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// InvalidateAll removes every cached result and returns how many were removed.
// Run it whenever the index is rebuilt.
func (m *Manager) InvalidateAll(ctx context.Context) (int, error) {
	if m.repo == nil {
		return 0, ErrDisabled
	}
	n, err := m.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("cleared cache", "entries", n)
	return n, nil
}

func preview(query string) string {
	r := []rune(query)
	if len(r) <= 50 {
		return query
	}
	return string(r[:50]) + "..."
}
