package cache

import "errors"

// ErrDisabled indicates an operation that needs storage on a pass-through manager.
var ErrDisabled = errors.New("cache is disabled")
