package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when the key has never been set.
var ErrNotFound = errors.New("setting not found")

// Store defines key/value access to persisted settings.
//
// Store implementations must be safe for concurrent access. No transactional
// guarantees are required: callers treat each Set as an independent
// overwrite.
type Store interface {
	// Get returns the value stored under key, or [ErrNotFound].
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
