package navigator

import "errors"

var (
	// ErrInvalidSelection indicates a response that was not a usable selection:
	// unparseable, missing the expected key, or naming only unknown ids.
	ErrInvalidSelection = errors.New("invalid selection response")

	// ErrEmptySelection indicates a well-formed response that selected nothing.
	ErrEmptySelection = errors.New("empty selection")
)
