package cache

import (
	"context"
	"time"
)

// Snapshotting wraps a Cache so every Set/SetIfAbsent also durably records
// the entry in a SnapshotStore and every Delete removes it there too,
// giving the in-memory lock registry restart survival. LoadInto restores
// prior entries into the wrapped cache at startup.
type Snapshotting struct {
	inner Cache
	store *SnapshotStore
}

// NewSnapshotting returns a Cache that persists every write to store in
// addition to serving reads from inner.
func NewSnapshotting(inner Cache, store *SnapshotStore) *Snapshotting {
	return &Snapshotting{inner: inner, store: store}
}

func (s *Snapshotting) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, key)
}

func (s *Snapshotting) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.inner.SetIfAbsent(ctx, key, value, ttl)
	if err != nil || !ok {
		return ok, err
	}
	if err := s.store.Put(key, key, value, expiry(ttl)); err != nil {
		return ok, err
	}
	return true, nil
}

func (s *Snapshotting) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.inner.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return s.store.Put(key, key, value, expiry(ttl))
}

func (s *Snapshotting) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	return s.store.Remove(key)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Now().Add(100 * 365 * 24 * time.Hour)
	}
	return time.Now().Add(ttl)
}

// LoadInto restores every non-expired snapshot record into inner, for use
// right after construction, before the server starts accepting requests.
func (s *Snapshotting) LoadInto(ctx context.Context) error {
	records, err := s.store.LoadAll()
	if err != nil {
		return err
	}
	for key, record := range records {
		if err := s.inner.Set(ctx, key, record, 0); err != nil {
			return err
		}
	}
	return nil
}
