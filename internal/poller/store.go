// Package poller keeps the latest result of periodically refreshed fetches,
// keyed by logical resource name.
//
// Each key runs its own loop goroutine, so fetches for one key never overlap.
// Ticks that arrive while a fetch is running are dropped rather than queued.
// Results carry a generation number and are applied only when newer than the
// applied one and when the subscription that started them is still current,
// so an unsubscribed or replaced key never sees a late result.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Well-known keys.
const (
	KeyStatus       = "status"
	KeyLedgerStatus = "ledger_status"
	KeyTeams        = "teams"
	KeyStats        = "stats"
	KeyLeaderboard  = "leaderboard"
	KeyPrice        = "price"
	KeyPositions    = "positions"
)

// DefaultFetchTimeout bounds a single fetch.
const DefaultFetchTimeout = 10 * time.Second

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("poller: store closed")

// Fetcher produces a fresh value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is a point-in-time read of a key.
type Snapshot struct {
	Value any
	// Loading is true until the first fetch for the key has completed.
	Loading bool
	// Err is the last fetch error; cleared by the next success. Value keeps
	// the last successful result while Err is set.
	Err        error
	UpdatedAt  time.Time
	Generation uint64
}

// UpdateFunc is called after a result has been applied to a key.
type UpdateFunc func(key string, snap Snapshot)

type entry struct {
	key        string
	fetcher    Fetcher
	interval   time.Duration
	cancel     context.CancelFunc
	invalidate chan struct{}
	done       chan struct{}

	// guarded by Store.mu
	started uint64
	snap    Snapshot
}

// Store owns the per-key loops. The zero value is not usable; call New.
type Store struct {
	mu           sync.RWMutex
	entries      map[string]*entry
	closed       bool
	fetchTimeout time.Duration
	onUpdate     UpdateFunc
	logger       *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithOnUpdate registers fn to run after each applied result. fn runs on the
// key's loop goroutine and must not block.
func WithOnUpdate(fn UpdateFunc) Option {
	return func(s *Store) { s.onUpdate = fn }
}

// New creates an empty Store.
func New(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		entries:      make(map[string]*entry),
		fetchTimeout: DefaultFetchTimeout,
		logger:       logger.With(slog.String("component", "poller")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe starts polling key: fetcher runs immediately and then every
// interval until ctx is cancelled, Unsubscribe(key) or Close. Subscribing an
// existing key replaces its subscription; the old value is kept until the new
// fetcher produces one.
func (s *Store) Subscribe(ctx context.Context, key string, fetcher Fetcher, interval time.Duration) error {
	if fetcher == nil {
		return fmt.Errorf("poller: subscribe %s: nil fetcher", key)
	}
	if interval <= 0 {
		return fmt.Errorf("poller: subscribe %s: interval must be positive", key)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e := &entry{
		key:        key,
		fetcher:    fetcher,
		interval:   interval,
		cancel:     cancel,
		invalidate: make(chan struct{}, 1),
		done:       make(chan struct{}),
		snap:       Snapshot{Loading: true},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrClosed
	}
	old := s.entries[key]
	if old != nil {
		e.snap = old.snap
		e.started = old.started
		old.cancel()
	}
	s.entries[key] = e
	s.mu.Unlock()

	go s.loop(loopCtx, e)
	return nil
}

// Get returns the current snapshot for key. ok is false when key has never
// been subscribed or was unsubscribed.
func (s *Store) Get(key string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// Keys returns the currently subscribed keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Invalidate schedules an immediate refetch of key. Repeated calls before
// the refetch starts collapse into one. Unknown keys are ignored.
func (s *Store) Invalidate(key string) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case e.invalidate <- struct{}{}:
	default:
	}
}

// Unsubscribe stops polling key and forgets its value. A fetch in flight is
// cancelled and its result discarded.
func (s *Store) Unsubscribe(key string) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Close stops every loop and waits for them to exit.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	entries := make([]*entry, 0, len(s.entries))
	for k, e := range s.entries {
		entries = append(entries, e)
		delete(s.entries, k)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	for _, e := range entries {
		<-e.done
	}
}

func (s *Store) loop(ctx context.Context, e *entry) {
	defer close(e.done)

	s.fetch(ctx, e)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.invalidate:
		}
		s.fetch(ctx, e)

		// Drop a tick that fired while the fetch was running.
		select {
		case <-ticker.C:
		default:
		}
	}
}

func (s *Store) fetch(ctx context.Context, e *entry) {
	s.mu.Lock()
	e.started++
	gen := e.started
	s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	value, err := e.fetcher(fetchCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.entries[e.key] != e || gen <= e.snap.Generation {
		s.mu.Unlock()
		return
	}
	e.snap.Loading = false
	e.snap.Generation = gen
	if err != nil {
		e.snap.Err = err
	} else {
		e.snap.Value = value
		e.snap.Err = nil
		e.snap.UpdatedAt = time.Now()
	}
	snap := e.snap
	s.mu.Unlock()

	if err != nil {
		s.logger.WarnContext(ctx, "fetch failed",
			slog.String("key", e.key),
			slog.Uint64("generation", gen),
			slog.String("error", err.Error()),
		)
	}
	if s.onUpdate != nil {
		s.onUpdate(e.key, snap)
	}
}
