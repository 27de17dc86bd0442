package citation

import "errors"

var (
	// ErrInvalidThresholds is returned when the fix threshold exceeds the
	// verify threshold or either lies outside 0-100.
	ErrInvalidThresholds = errors.New("invalid similarity thresholds")
)
