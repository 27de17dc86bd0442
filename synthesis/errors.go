package synthesis

import "errors"

var (
	// ErrEmptyDraft indicates the writer returned only whitespace.
	ErrEmptyDraft = errors.New("writer returned an empty draft")

	// ErrNoPassages is returned when there is nothing to synthesize from.
	ErrNoPassages = errors.New("no passages to synthesize")
)
