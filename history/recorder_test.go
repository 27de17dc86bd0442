package history

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/pageindex/cache"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/retry"
	"github.com/poiesic/pageindex/storage"
	"github.com/poiesic/pageindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRecorder(t *testing.T, opts ...Option) (*Recorder, storage.HistoryRepository) {
	t.Helper()
	cacheRepo, historyRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	rec, err := New(historyRepo, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		rec.Close()
		historyRepo.Close()
		cacheRepo.Close()
		backend.Close()
	})
	return rec, historyRepo
}

func TestRecorder_RecordAndRead(t *testing.T) {
	rec, _ := setupRecorder(t, WithPoolSize(1))
	ctx := context.Background()

	rec.Record(ctx, "s1", "What is PMF", cache.Key("What is PMF"))
	rec.Wait()
	rec.Record(ctx, "s1", "growth loops", cache.Key("growth loops"))
	rec.Wait()

	list, err := rec.Session(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "growth loops", list[0].Query)
	assert.Equal(t, "What is PMF", list[1].Query)
	assert.Equal(t, cache.Key("what is pmf"), list[1].CacheKey)
	assert.False(t, list[0].Timestamp.IsZero())
}

func TestRecorder_DuplicateKeyNotReAdded(t *testing.T) {
	rec, _ := setupRecorder(t, WithPoolSize(1))
	ctx := context.Background()

	for _, q := range []string{"what is PMF", "retention", " What Is PMF "} {
		rec.Record(ctx, "s1", q, cache.Key(q))
		rec.Wait()
	}

	list, err := rec.Session(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "retention", list[0].Query)
	assert.Equal(t, "what is PMF", list[1].Query)
}

func TestRecorder_Limit(t *testing.T) {
	rec, _ := setupRecorder(t, WithPoolSize(1), WithLimit(3))
	ctx := context.Background()

	for i := range 5 {
		q := fmt.Sprintf("query %d", i)
		rec.Record(ctx, "s1", q, cache.Key(q))
		rec.Wait()
	}

	list, err := rec.Session(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "query 4", list[0].Query)
}

func TestRecorder_IgnoresEmptyInput(t *testing.T) {
	rec, _ := setupRecorder(t)
	ctx := context.Background()

	rec.Record(ctx, "", "query", "k")
	rec.Record(ctx, "s1", "  ", "k")
	rec.Wait()

	list, err := rec.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = rec.Session(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecorder_SurvivesCallerCancel(t *testing.T) {
	rec, _ := setupRecorder(t)
	ctx, cancel := context.WithCancel(context.Background())

	rec.Record(ctx, "s1", "query", "k")
	cancel()
	rec.Wait()

	list, err := rec.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecorder_UsesClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	rec, _ := setupRecorder(t, WithClock(func() time.Time { return fixed }))

	rec.Record(context.Background(), "s1", "query", "k")
	rec.Wait()

	list, err := rec.Session(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, fixed.Equal(list[0].Timestamp))
}

// conflictRepo fails the first writes with a transient error.
type conflictRepo struct {
	storage.HistoryRepository
	failures atomic.Int32
	calls    atomic.Int32
}

func (r *conflictRepo) AppendHistory(ctx context.Context, sessionID string, entry core.HistoryEntry, limit int) error {
	r.calls.Add(1)
	if r.failures.Add(-1) >= 0 {
		return errors.New("transaction conflict")
	}
	return nil
}

func TestRecorder_RetriesFailedWrites(t *testing.T) {
	repo := &conflictRepo{}
	repo.failures.Store(2)

	rec, err := New(repo, WithRetryPolicy(retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	defer rec.Close()

	rec.Record(context.Background(), "s1", "query", "k")
	rec.Wait()
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestRecorder_GivesUpAfterRetries(t *testing.T) {
	repo := &conflictRepo{}
	repo.failures.Store(10)

	rec, err := New(repo, WithRetryPolicy(retry.Policy{Attempts: 2, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	defer rec.Close()

	rec.Record(context.Background(), "s1", "query", "k")
	rec.Wait()
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = New(&conflictRepo{}, WithLimit(0))
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = New(&conflictRepo{}, WithRetryPolicy(retry.Policy{}))
	assert.ErrorIs(t, err, retry.ErrInvalidAttempts)
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	rec, err := New(&conflictRepo{})
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	// Dropped with a log line, never blocks or panics.
	rec.Record(context.Background(), "s1", "query", "k")
	rec.Wait()
}

// blockingRepo holds every write until release is closed.
type blockingRepo struct {
	storage.HistoryRepository
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (r *blockingRepo) AppendHistory(ctx context.Context, sessionID string, entry core.HistoryEntry, limit int) error {
	if r.calls.Add(1) == 1 {
		close(r.started)
	}
	<-r.release
	return nil
}

func TestRecorder_RecordDoesNotWaitForWorkers(t *testing.T) {
	repo := &blockingRepo{started: make(chan struct{}), release: make(chan struct{})}
	rec, err := New(repo, WithPoolSize(1), WithRetryPolicy(retry.Policy{Attempts: 1}))
	require.NoError(t, err)
	defer rec.Close()
	ctx := context.Background()

	rec.Record(ctx, "s1", "first", "k0")
	<-repo.started

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range maxPending + 10 {
			rec.Record(ctx, "s1", fmt.Sprintf("query %d", i), fmt.Sprintf("k%d", i+1))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked while the only worker was busy")
	}

	close(repo.release)
	rec.Wait()
	assert.Equal(t, int32(maxPending+1), repo.calls.Load())
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	repo := &conflictRepo{}
	rec, err := New(repo, WithPoolSize(1))
	require.NoError(t, err)

	for i := range 5 {
		rec.Record(context.Background(), "s1", fmt.Sprintf("query %d", i), "k")
	}
	require.NoError(t, rec.Close())
	assert.Equal(t, int32(5), repo.calls.Load())
	require.NoError(t, rec.Close())
}
