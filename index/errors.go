package index

import "errors"

var (
	// ErrIndexMissing indicates the index root or a required index file does not exist.
	ErrIndexMissing = errors.New("index missing")

	// ErrIndexMalformed indicates an index file could not be parsed or failed validation.
	ErrIndexMalformed = errors.New("index malformed")
)
