package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(key, query string) *core.CacheEntry {
	return &core.CacheEntry{
		Key:             key,
		NormalizedQuery: query,
		Query:           query,
		Result: &core.ResearchOutput{
			Content:          "answer to " + query,
			Citations:        []core.Citation{},
			Sources:          []core.Source{},
			UnverifiedQuotes: []string{},
		},
	}
}

func setupCache(t *testing.T) (storage.CacheRepository, storage.HistoryRepository) {
	t.Helper()
	cacheRepo, historyRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		historyRepo.Close()
		cacheRepo.Close()
		backend.Close()
	})
	return cacheRepo, historyRepo
}

func TestCacheRepository_PutGet(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	stored, err := repo.PutEntry(ctx, newEntry("k1", "what is pmf"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.AccessCount)
	assert.NotZero(t, stored.Seq)
	assert.False(t, stored.CachedAt.IsZero())

	got, err := repo.GetEntry(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "what is pmf", got.NormalizedQuery)
	assert.Equal(t, "answer to what is pmf", got.Result.Content)
	assert.Equal(t, stored.Seq, got.Seq)
}

func TestCacheRepository_GetMissing(t *testing.T) {
	repo, _ := setupCache(t)

	_, err := repo.GetEntry(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetEntry(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestCacheRepository_PutIsIdempotentOverwrite(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	first, err := repo.PutEntry(ctx, newEntry("k1", "what is pmf"))
	require.NoError(t, err)
	_, err = repo.IncrementAccess(ctx, "k1")
	require.NoError(t, err)

	updated := newEntry("k1", "what is pmf")
	updated.Result.Content = "newer answer"
	second, err := repo.PutEntry(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, first.Seq, second.Seq)
	assert.Equal(t, int64(2), second.AccessCount)

	got, err := repo.GetEntry(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "newer answer", got.Result.Content)
	assert.Equal(t, int64(2), got.AccessCount)
}

func TestCacheRepository_SequenceOrdersInsertion(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	a, err := repo.PutEntry(ctx, newEntry("zz", "first"))
	require.NoError(t, err)
	b, err := repo.PutEntry(ctx, newEntry("aa", "second"))
	require.NoError(t, err)

	assert.Less(t, a.Seq, b.Seq)
}

func TestCacheRepository_IncrementAccess(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	_, err := repo.IncrementAccess(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.PutEntry(ctx, newEntry("k1", "q"))
	require.NoError(t, err)

	for want := int64(2); want <= 4; want++ {
		got, err := repo.IncrementAccess(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCacheRepository_ConcurrentIncrementsNeverDecrease(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	_, err := repo.PutEntry(ctx, newEntry("k1", "q"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Conflicts are allowed; lost increments are tolerated.
			_, _ = repo.IncrementAccess(ctx, "k1")
		}()
	}
	wg.Wait()

	got, err := repo.GetEntry(ctx, "k1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.AccessCount, int64(2))
	assert.LessOrEqual(t, got.AccessCount, int64(9))
}

func TestCacheRepository_ListEntries(t *testing.T) {
	repo, _ := setupCache(t)
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		_, err := repo.PutEntry(ctx, newEntry(k, "query "+k))
		require.NoError(t, err)
	}

	all, err := repo.ListEntries(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Key)
	assert.NotNil(t, all[0].Result)

	light, err := repo.ListEntries(ctx, false)
	require.NoError(t, err)
	require.Len(t, light, 3)
	for _, e := range light {
		assert.Nil(t, e.Result)
	}
}

func TestCacheRepository_DeleteAll(t *testing.T) {
	repo, historyRepo := setupCache(t)
	ctx := context.Background()

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	last := &core.CacheEntry{}
	for _, k := range []string{"a", "b"} {
		last, err = repo.PutEntry(ctx, newEntry(k, k))
		require.NoError(t, err)
	}
	require.NoError(t, historyRepo.AppendHistory(ctx, "s1", core.HistoryEntry{Query: "a", CacheKey: "a", Timestamp: time.Now()}, 0))

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := repo.ListEntries(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, all)

	// History is a separate record set.
	hist, err := historyRepo.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	again, err := repo.PutEntry(ctx, newEntry("a", "a"))
	require.NoError(t, err)
	assert.Greater(t, again.Seq, last.Seq)
	assert.Equal(t, int64(1), again.AccessCount)
}
