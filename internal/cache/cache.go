// Package cache defines the shared key/value collaborator the Lock
// Manager uses for its compare-and-set lock registry. It supplies an
// in-memory default plus a Redis-backed implementation for multi-worker
// deployments.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is the set-if-absent collaborator the Lock Manager depends on.
// Implementations must make SetIfAbsent atomic so two concurrent LOCKs
// for the same key cannot both succeed.
type Cache interface {
	// Get returns the stored value, or ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// SetIfAbsent stores value under key only if key is not already
	// present, returning true if the store happened. ttl <= 0 means no
	// expiry.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Set unconditionally stores value under key, used for lock refresh.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. It is not an error if key is already absent.
	Delete(ctx context.Context, key string) error
}
