package history

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/retry"
	"github.com/poiesic/pageindex/storage"
)

const (
	// DefaultLimit is the number of entries kept per session.
	DefaultLimit = 50
	// DefaultPoolSize bounds concurrent history writes.
	DefaultPoolSize = 2

	// maxPending bounds entries waiting for a free worker. Beyond it
	// entries are dropped.
	maxPending = 64

	releaseTimeout = 5 * time.Second
)

// Recorder writes session history in the background. Entries wait in a
// bounded queue drained by a fixed set of pool workers.
type Recorder struct {
	repo     storage.HistoryRepository
	pool     *ants.Pool
	poolSize int
	queue    chan job
	limit    int
	policy   retry.Policy
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	workers sync.WaitGroup
}

type job struct {
	ctx       context.Context
	sessionID string
	entry     core.HistoryEntry
}

// Option configures a Recorder.
type Option func(*Recorder) error

// WithLimit sets the number of entries kept per session.
func WithLimit(n int) Option {
	return func(r *Recorder) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		r.limit = n
		return nil
	}
}

// WithPoolSize sets the number of concurrent history writes.
// Values below 1 are treated as 1.
func WithPoolSize(size int) Option {
	return func(r *Recorder) error {
		r.poolSize = max(size, 1)
		return nil
	}
}

// WithRetryPolicy sets the policy for writes that lose a transaction conflict.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Recorder) error {
		if p.Attempts <= 0 {
			return retry.ErrInvalidAttempts
		}
		r.policy = p
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// New creates a Recorder over repo. Call Close when done with it.
func New(repo storage.HistoryRepository, opts ...Option) (*Recorder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	r := &Recorder{
		repo:     repo,
		poolSize: DefaultPoolSize,
		limit:    DefaultLimit,
		policy: retry.Policy{
			Attempts:  3,
			BaseDelay: 20 * time.Millisecond,
			Timeout:   5 * time.Second,
		},
		logger: slog.Default().With("component", "history"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	r.queue = make(chan job, maxPending)
	for range r.poolSize {
		r.workers.Add(1)
		if err := pool.Submit(r.drain); err != nil {
			r.workers.Done()
			close(r.queue)
			r.workers.Wait()
			_ = pool.ReleaseTimeout(releaseTimeout)
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) drain() {
	defer r.workers.Done()
	for j := range r.queue {
		r.write(j.ctx, j.sessionID, j.entry)
		r.pending.Done()
	}
}

// Record notes that query was served under cacheKey in the session. It never
// waits for a worker: the entry is queued and written in the background, or
// dropped with a log line if the queue is full, the recorder is closed or the
// write fails. Empty session ids and queries are ignored. Cancelling ctx does
// not cancel the write.
func (r *Recorder) Record(ctx context.Context, sessionID, query, cacheKey string) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(query) == "" {
		return
	}
	j := job{
		ctx:       context.WithoutCancel(ctx),
		sessionID: sessionID,
		entry: core.HistoryEntry{
			Query:     query,
			CacheKey:  cacheKey,
			Timestamp: r.now(),
		},
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("dropped history entry", "session", sessionID, "error", ErrClosed)
		return
	}
	r.pending.Add(1)
	select {
	case r.queue <- j:
	default:
		r.pending.Done()
		r.logger.Warn("dropped history entry", "session", sessionID, "error", ErrQueueFull)
	}
}

func (r *Recorder) write(ctx context.Context, sessionID string, entry core.HistoryEntry) {
	res := r.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		return r.repo.AppendHistory(ctx, sessionID, entry, r.limit)
	})
	if !res.Succeeded() {
		r.logger.Warn("failed to record history",
			"session", sessionID,
			"attempts", res.Attempts,
			"error", res.Err)
		return
	}
	r.logger.Debug("recorded history", "session", sessionID, "cache_key", entry.CacheKey)
}

// Session returns the session's entries, newest first. An unknown or empty
// session id yields an empty list.
func (r *Recorder) Session(ctx context.Context, sessionID string) ([]core.HistoryEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return []core.HistoryEntry{}, nil
	}
	list, err := r.repo.GetHistory(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []core.HistoryEntry{}, nil
		}
		return nil, err
	}
	return list, nil
}

// Wait blocks until every queued write has finished.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

// Close waits for queued writes and stops the worker pool. Entries recorded
// afterwards are dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.workers.Wait()
	if err := r.pool.ReleaseTimeout(releaseTimeout); err != nil && !errors.Is(err, ants.ErrPoolClosed) {
		return err
	}
	return nil
}
