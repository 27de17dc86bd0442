package mock

import (
	"context"
	"sync"

	"github.com/poiesic/pageindex/ai"
)

// Reasoner is a test double for ai.Reasoner.
// It is safe for concurrent use.
type Reasoner struct {
	// ReasonFunc is called by Reason if set.
	// If nil, scripted responses are replayed.
	ReasonFunc func(ctx context.Context, req ai.Request) (string, error)

	mu        sync.Mutex
	responses []string
	calls     []ai.Request
}

// NewReasoner creates a mock that replays responses in order.
// Once exhausted, the last response repeats.
// Note: Returns concrete type to allow test assertions.
func NewReasoner(responses ...string) *Reasoner {
	return &Reasoner{responses: responses}
}

// WithReasonFunc sets custom behavior and returns the mock for chaining.
func (m *Reasoner) WithReasonFunc(fn func(ctx context.Context, req ai.Request) (string, error)) *Reasoner {
	m.ReasonFunc = fn
	return m
}

// Reason records the request and returns the scripted response.
func (m *Reasoner) Reason(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, req)
	fn := m.ReasonFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case len(m.responses) == 0:
		return "{}", nil
	case idx < len(m.responses):
		return m.responses[idx], nil
	default:
		return m.responses[len(m.responses)-1], nil
	}
}

// CallCount returns the number of times Reason was called.
func (m *Reasoner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of every request received.
func (m *Reasoner) Calls() []ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and custom functions.
func (m *Reasoner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.ReasonFunc = nil
}
