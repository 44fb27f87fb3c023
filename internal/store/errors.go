package store

import "errors"

var (
	// ErrNotFound is returned when a page or run is not in the store.
	ErrNotFound = errors.New("not found")

	// ErrNoStores is returned by NewMultiStore when no store is given.
	ErrNoStores = errors.New("multi store needs at least one store")
)
