package history

import "errors"

var (
	// ErrRepositoryRequired indicates New was called without a repository.
	ErrRepositoryRequired = errors.New("history: repository is required")

	// ErrInvalidLimit indicates a non-positive per-session limit.
	ErrInvalidLimit = errors.New("history: limit must be greater than 0")

	// ErrQueueFull indicates an entry was dropped because too many writes
	// were pending.
	ErrQueueFull = errors.New("history: write queue is full")

	// ErrClosed indicates an entry was recorded after Close.
	ErrClosed = errors.New("history: recorder is closed")
)
