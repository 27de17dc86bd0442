package ai

import "context"

// Request is a single reasoning or generation call.
type Request struct {
	// System is the instruction block sent with the system role.
	System string

	// User is the task content sent with the human role.
	User string

	// JSON asks the backend for a JSON-only response when it supports it.
	JSON bool

	// Temperature overrides the configured sampling temperature when > 0.
	Temperature float64

	// MaxTokens caps the response length. Zero means backend default.
	MaxTokens int
}

// Reasoner issues one model call and returns the raw text of the first choice.
// Implementations must be thread-safe for concurrent use.
type Reasoner interface {
	// Reason sends the request and returns the model's response text.
	// Returns ErrEmptyResponse if the model produced no choices.
	Reason(ctx context.Context, req Request) (string, error)
}

// ReasonerFunc adapts an ordinary function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, req Request) (string, error)

// Reason calls f(ctx, req).
func (f ReasonerFunc) Reason(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// AIProvider aggregates the model services used by the pipeline.
type AIProvider interface {
	// Reasoner returns the model used for planning and index navigation.
	// Calls are short, structured and run at low temperature.
	Reasoner() Reasoner

	// Writer returns the model used for long-form synthesis.
	Writer() Reasoner

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
