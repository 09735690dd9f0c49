// Package lock implements the advisory lock registry: one entry per
// fully-qualified request URI, backed by a shared cache so that multiple
// server processes agree on who holds a lock.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davfs/davfsd/internal/cache"
)

// ErrConflict is returned when a URI is already locked by a different
// token than the one the caller presented.
var ErrConflict = errors.New("lock: resource is already locked")

// ErrNotFound is returned by Refresh/Validate/Release for an unknown or
// expired token.
var ErrNotFound = errors.New("lock: token not found")

// Depth mirrors the two depths RFC 4918 allows for a lock request.
type Depth int

const (
	DepthZero     Depth = 0
	DepthInfinity Depth = -1
)

// Lock is the record a successful LOCK request produces: the resource it
// covers, the opaque token a client presents to refresh or release it,
// the submitted owner, its depth, and when it was granted and for how long.
type Lock struct {
	URI       string    `json:"uri"`
	Token     string    `json:"token"`
	OwnerXML  string    `json:"owner_xml"`
	Depth     Depth     `json:"depth"`
	Timeout   time.Duration `json:"timeout"`
	CreatedAt time.Time `json:"created_at"`
}

func (l Lock) expiresAt() time.Time {
	return l.CreatedAt.Add(l.Timeout)
}

// Expired reports whether the lock's timeout has elapsed as of now.
func (l Lock) Expired(now time.Time) bool {
	return now.After(l.expiresAt())
}

// RemainingSeconds returns the whole seconds left before expiry, clamped
// to zero.
func (l Lock) RemainingSeconds(now time.Time) int64 {
	remaining := l.expiresAt().Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// Manager grants, refreshes, validates and releases locks keyed by
// canonical request URI. It is a thin layer over a cache.Cache: all
// cross-process consistency is delegated to the cache's compare-and-set
// primitive, so the manager itself holds no mutable state of its own.
type Manager struct {
	backing    cache.Cache
	maxTimeout time.Duration
}

// infiniteTimeout stands in for a client's "no timeout requested" (or
// explicit "Infinite") when computing an expiry, since a lock with
// Timeout<=0 would expire the instant it's created.
const infiniteTimeout = 100 * 365 * 24 * time.Hour

// NewManager builds a lock Manager over the given cache, clamping any
// requested timeout to maxTimeout (zero or negative disables clamping).
func NewManager(backing cache.Cache, maxTimeout time.Duration) *Manager {
	return &Manager{backing: backing, maxTimeout: maxTimeout}
}

func (m *Manager) clamp(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = infiniteTimeout
	}
	if m.maxTimeout > 0 && timeout > m.maxTimeout {
		return m.maxTimeout
	}
	return timeout
}

// Acquire grants a new lock on uri if it is not already locked, storing
// it under the cache key so a concurrent Acquire for the same uri loses
// the SetIfAbsent race and observes ErrConflict instead.
func (m *Manager) Acquire(ctx context.Context, uri, ownerXML string, depth Depth, timeout time.Duration) (Lock, error) {
	lock := Lock{
		URI:       uri,
		Token:     newToken(),
		OwnerXML:  ownerXML,
		Depth:     depth,
		Timeout:   m.clamp(timeout),
		CreatedAt: time.Now(),
	}

	encoded, err := json.Marshal(lock)
	if err != nil {
		return Lock{}, fmt.Errorf("lock: encode: %w", err)
	}

	ok, err := m.backing.SetIfAbsent(ctx, uri, string(encoded), lock.Timeout)
	if err != nil {
		return Lock{}, err
	}
	if !ok {
		return Lock{}, ErrConflict
	}
	return lock, nil
}

// Refresh extends an existing lock's timeout, validating that token
// still matches the lock currently held on uri.
func (m *Manager) Refresh(ctx context.Context, uri, token string, timeout time.Duration) (Lock, error) {
	existing, err := m.load(ctx, uri)
	if err != nil {
		return Lock{}, err
	}
	if existing.Token != token {
		return Lock{}, ErrNotFound
	}

	existing.Timeout = m.clamp(timeout)
	existing.CreatedAt = time.Now()

	encoded, err := json.Marshal(existing)
	if err != nil {
		return Lock{}, fmt.Errorf("lock: encode: %w", err)
	}
	if err := m.backing.Set(ctx, uri, string(encoded), existing.Timeout); err != nil {
		return Lock{}, err
	}
	return existing, nil
}

// Validate returns the active lock on uri, if any, without modifying it.
// A missing or expired entry is reported as ErrNotFound.
func (m *Manager) Validate(ctx context.Context, uri string) (Lock, error) {
	return m.load(ctx, uri)
}

// Release removes the lock on uri, requiring the caller's token to match
// the one on record. A mismatched or missing token is reported as
// ErrNotFound so the caller can answer UNLOCK with a conflict.
func (m *Manager) Release(ctx context.Context, uri, token string) error {
	existing, err := m.load(ctx, uri)
	if err != nil {
		return err
	}
	if existing.Token != token {
		return ErrNotFound
	}
	return m.backing.Delete(ctx, uri)
}

func (m *Manager) load(ctx context.Context, uri string) (Lock, error) {
	raw, err := m.backing.Get(ctx, uri)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Lock{}, ErrNotFound
		}
		return Lock{}, err
	}
	var l Lock
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return Lock{}, fmt.Errorf("lock: decode: %w", err)
	}
	if l.Expired(time.Now()) {
		return Lock{}, ErrNotFound
	}
	return l, nil
}

func newToken() string {
	return "opaquelocktoken:" + uuid.New().String()
}
