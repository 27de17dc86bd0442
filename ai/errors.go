package ai

import "errors"

var (
	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrNoJSON indicates a response contained no JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")
)
