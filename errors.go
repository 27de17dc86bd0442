package pageindex

import "errors"

var (
	// ErrStoreRequired is returned when NewEngine is given no index.
	ErrStoreRequired = errors.New("index store is required")
)
