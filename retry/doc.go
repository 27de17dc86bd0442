// Package retry runs an operation under a bounded retry budget with
// exponential backoff and a per-attempt timeout.
//
// The control flow is an explicit state machine (attempt, backoff, then one
// of succeeded, exhausted or cancelled) so callers can decide between
// degrading and failing from the terminal state alone.
package retry
