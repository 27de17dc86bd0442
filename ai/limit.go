package ai

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of simultaneous model calls shared by every
// Reasoner it wraps.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a limiter admitting at most n calls at once.
// Values below 1 are treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Wrap returns a Reasoner that acquires a slot before every call.
func (l *Limiter) Wrap(r Reasoner) Reasoner {
	return &limitedReasoner{inner: r, sem: l.sem}
}

type limitedReasoner struct {
	inner Reasoner
	sem   *semaphore.Weighted
}

func (l *limitedReasoner) Reason(ctx context.Context, req Request) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.inner.Reason(ctx, req)
}
