package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/storage"
	"github.com/poiesic/pageindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	cacheRepo, historyRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		historyRepo.Close()
		cacheRepo.Close()
		backend.Close()
	})
	m, err := New(cacheRepo)
	require.NoError(t, err)
	return m
}

func output(content string) *core.ResearchOutput {
	return &core.ResearchOutput{
		Content:          content,
		Citations:        []core.Citation{},
		Sources:          []core.Source{},
		UnverifiedQuotes: []string{},
	}
}

func TestKey(t *testing.T) {
	// sha256("what is pmf")
	const want = "3b77052677b255e9ba3bad8144c53e5497f92a3ab57afefb920bd995154cd967"

	k := Key("what is pmf")
	assert.Equal(t, want, k)
	assert.Equal(t, k, Key(" What Is PMF "))
	assert.Equal(t, k, Key("\tWHAT IS PMF\n"))
	assert.NotEqual(t, k, Key("what is  pmf"))
}

func TestManager_MissThenHit(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	got, ok := m.Get(ctx, "what is PMF")
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, m.Put(ctx, "what is PMF", output("PMF is...")))

	got, ok = m.Get(ctx, " What Is PMF ")
	require.True(t, ok)
	assert.Equal(t, "PMF is...", got.Content)
}

func TestManager_AccessCount(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "popular", output("a")))
	require.NoError(t, m.Put(ctx, "rare", output("b")))
	for range 3 {
		_, ok := m.Get(ctx, "popular")
		require.True(t, ok)
	}

	top, err := m.TopByAccessCount(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "popular", top[0].NormalizedQuery)
	assert.Equal(t, int64(4), top[0].AccessCount)
	assert.Equal(t, int64(1), top[1].AccessCount)
	assert.Nil(t, top[0].Result)
}

func TestManager_PutKeepsAccessCount(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "q", output("first")))
	_, _ = m.Get(ctx, "q")
	require.NoError(t, m.Put(ctx, "Q", output("second")))

	top, err := m.TopByAccessCount(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(2), top[0].AccessCount)

	got, ok := m.Get(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, "second", got.Content)
}

func TestManager_TopByAccessCountTieBreak(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	// Keys sort differently from insertion order.
	for _, q := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, m.Put(ctx, q, output(q)))
	}

	top, err := m.TopByAccessCount(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "zeta", top[0].NormalizedQuery)
	assert.Equal(t, "alpha", top[1].NormalizedQuery)
}

func TestManager_InvalidateAll(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", output("a")))
	require.NoError(t, m.Put(ctx, "b", output("b")))

	n, err := m.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestManager_UsesClock(t *testing.T) {
	cacheRepo, historyRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { historyRepo.Close(); cacheRepo.Close(); backend.Close() }()

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m, err := New(cacheRepo, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	require.NoError(t, m.Put(context.Background(), "q", output("x")))
	entry, err := cacheRepo.GetEntry(context.Background(), Key("q"))
	require.NoError(t, err)
	assert.True(t, fixed.Equal(entry.CachedAt))

	_, err = New(cacheRepo, WithClock(nil))
	assert.Error(t, err)
}

func TestManager_PassThrough(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, m.Enabled())
	assert.NoError(t, m.Put(ctx, "q", output("x")))
	_, ok := m.Get(ctx, "q")
	assert.False(t, ok)

	_, err = m.TopByAccessCount(ctx, 5)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = m.InvalidateAll(ctx)
	assert.ErrorIs(t, err, ErrDisabled)
}

// flakyRepo fails the operations whose error fields are set.
type flakyRepo struct {
	storage.CacheRepository
	getErr       error
	putErr       error
	incrementErr error
	entry        *core.CacheEntry
	increments   int
}

func (r *flakyRepo) GetEntry(ctx context.Context, key string) (*core.CacheEntry, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.entry == nil {
		return nil, storage.ErrNotFound
	}
	return r.entry, nil
}

func (r *flakyRepo) PutEntry(ctx context.Context, entry *core.CacheEntry) (*core.CacheEntry, error) {
	if r.putErr != nil {
		return nil, r.putErr
	}
	r.entry = entry
	return entry, nil
}

func (r *flakyRepo) IncrementAccess(ctx context.Context, key string) (int64, error) {
	r.increments++
	return 0, r.incrementErr
}

func TestManager_StorageFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	unavailable := errors.New("connection refused")

	t.Run("read failure is a miss", func(t *testing.T) {
		m, err := New(&flakyRepo{getErr: unavailable})
		require.NoError(t, err)
		_, ok := m.Get(ctx, "q")
		assert.False(t, ok)
	})

	t.Run("write failure is returned, not fatal", func(t *testing.T) {
		m, err := New(&flakyRepo{putErr: unavailable})
		require.NoError(t, err)
		assert.ErrorIs(t, m.Put(ctx, "q", output("x")), unavailable)
	})

	t.Run("increment failure still serves the hit", func(t *testing.T) {
		repo := &flakyRepo{incrementErr: unavailable}
		m, err := New(repo)
		require.NoError(t, err)
		require.NoError(t, m.Put(ctx, "q", output("x")))

		got, ok := m.Get(ctx, "q")
		require.True(t, ok)
		assert.Equal(t, "x", got.Content)
		assert.Equal(t, 1, repo.increments)
	})
}
