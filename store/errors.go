package store

import "errors"

var (
	// ErrNotFound is returned by backends and stores when a record does not exist
	ErrNotFound = errors.New("record not found")
)
