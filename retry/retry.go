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


package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidAttempts is returned when a policy allows no attempts.
var ErrInvalidAttempts = errors.New("retry: attempts must be greater than 0")

// State is a step of the retry machine.
type State int

const (
	StateAttempt State = iota
	StateBackoff
	StateSucceeded
	StateExhausted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAttempt:
		return "attempt"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Policy bounds how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the wait before the first retry; it doubles on each retry.
	BaseDelay time.Duration
	// Timeout bounds a single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
}

// DefaultPolicy is one attempt plus two retries, 500ms base backoff and a
// 60s per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		Timeout:   60 * time.Second,
	}
}

// Result is the terminal state of a run.
type Result struct {
	State    State
	Attempts int
	// Err is nil on success, the last operation error when exhausted, or the
	// context error when cancelled.
	Err error
}

// Succeeded reports whether the operation eventually succeeded.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Operation is one try. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// Do runs op until it succeeds, the attempt budget is spent, or ctx is done.
func (p Policy) Do(ctx context.Context, op Operation) Result {
	if p.Attempts <= 0 {
		return Result{State: StateExhausted, Err: ErrInvalidAttempts}
	}

	state := StateAttempt
	attempt := 0
	delay := p.BaseDelay
	var lastErr error

	for {
		switch state {
		case StateAttempt:
			if err := ctx.Err(); err != nil {
				return Result{State: StateCancelled, Attempts: attempt, Err: err}
			}
			attempt++
			lastErr = p.try(ctx, op, attempt)
			switch {
			case lastErr == nil:
				state = StateSucceeded
			case ctx.Err() != nil:
				return Result{State: StateCancelled, Attempts: attempt, Err: ctx.Err()}
			case attempt >= p.Attempts:
				state = StateExhausted
			default:
				slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.Attempts, "error", lastErr)
				state = StateBackoff
			}

		case StateBackoff:
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{State: StateCancelled, Attempts: attempt, Err: ctx.Err()}
			case <-timer.C:
			}
			delay *= 2
			state = StateAttempt

		case StateSucceeded:
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return Result{State: StateSucceeded, Attempts: attempt}

		case StateExhausted:
			return Result{State: StateExhausted, Attempts: attempt, Err: lastErr}
		}
	}
}

func (p Policy) try(ctx context.Context, op Operation, attempt int) error {
	if p.Timeout <= 0 {
		return op(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(attemptCtx, attempt)
}
