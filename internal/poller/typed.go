package poller

import (
	"context"
	"time"
)

// Watch subscribes key with a typed fetcher.
func Watch[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (T, error), interval time.Duration) error {
	return s.Subscribe(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, interval)
}

// Get returns the typed value for key along with its snapshot. The zero T is
// returned while the key is loading, unknown, or holds another type.
func Get[T any](s *Store, key string) (T, Snapshot) {
	var zero T
	snap, ok := s.Get(key)
	if !ok {
		return zero, Snapshot{Loading: true}
	}
	v, ok := snap.Value.(T)
	if !ok {
		return zero, snap
	}
	return v, snap
}
