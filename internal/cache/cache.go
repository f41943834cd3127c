// Package cache implements the stale-while-revalidate store that owns every
// materialized record for the session: the series list, per-series chapter
// lists, and the dashboard aggregate. Reads are synchronous and never block;
// refreshes happen in the background and are de-duplicated per key.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxAge is the deduping interval: a value younger than this is
	// considered fresh and subscribing to it will not refetch.
	DefaultMaxAge = 30 * time.Second

	fetchTimeout = 30 * time.Second

	updateBuffer = 64
)

// FetchFunc produces a fresh value for a key from the remote source of truth
type FetchFunc func(ctx context.Context, key Key) (interface{}, error)

// Entry is the synchronous snapshot returned to subscribers. A failed
// refresh leaves the previous value in place with Err set; the view layer
// renders the error affordance alongside the stale data, never instead of it.
type Entry struct {
	Value     interface{}
	Err       error
	FetchedAt time.Time
	IsStale   bool
}

// HasValue reports whether the entry carries any data at all
func (e Entry) HasValue() bool { return e.Value != nil }

type record struct {
	value     interface{}
	err       error
	fetchedAt time.Time
}

// Store is a per-session revalidating cache. It is created at startup,
// injected into consumers, and disposed with Close; there is no ambient
// module-level instance.
type Store struct {
	fetch  FetchFunc
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	entries  map[Key]*record
	inflight map[Key]chan struct{}
	updates  chan Key
	closed   bool
}

// Option configures a Store
type Option func(*Store)

// WithMaxAge overrides the staleness window
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a session cache around a fetch collaborator
func New(fetch FetchFunc, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		fetch:    fetch,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
		logger:   logger,
		entries:  make(map[Key]*record),
		inflight: make(map[Key]chan struct{}),
		updates:  make(chan Key, updateBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns the last known value for key immediately. If the value
// is missing or older than the staleness window, a background revalidation
// is triggered as a side effect; the caller observes the refresh through a
// later Subscribe or the Updates channel.
func (s *Store) Subscribe(key Key) Entry {
	s.mu.Lock()
	rec, ok := s.entries[key]
	var entry Entry
	stale := true
	if ok {
		stale = s.now().Sub(rec.fetchedAt) > s.maxAge
		entry = Entry{Value: rec.value, Err: rec.err, FetchedAt: rec.fetchedAt, IsStale: stale}
	}
	s.mu.Unlock()

	if !ok || stale {
		s.launch(key)
	}
	return entry
}

// Peek returns the cached value without triggering revalidation.
// This is the mutator's read path.
func (s *Store) Peek(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[key]
	if !ok || rec.value == nil {
		return nil, false
	}
	return rec.value, true
}

// Revalidate triggers a background fetch for key regardless of freshness.
// If a fetch for the same key is already in flight the call attaches to it
// instead of issuing a duplicate request.
func (s *Store) Revalidate(key Key) {
	s.launch(key)
}

// Put writes a value directly, bypassing the fetcher. Only the optimistic
// mutator writes through here; views are read-only consumers.
func (s *Store) Put(key Key, value interface{}) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.entries[key] = &record{value: value, fetchedAt: s.now()}
	s.mu.Unlock()
	s.notify(key)
}

// Updates emits the key of every committed write (fetch results and
// optimistic puts alike). Sends never block; a slow consumer misses
// notifications, not data.
func (s *Store) Updates() <-chan Key {
	return s.updates
}

// Close disposes the session cache. In-flight fetches are discarded on
// arrival rather than cancelled at the transport level.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
}

// launch starts a background fetch for key, de-duplicated per key.
// The returned channel closes when the fetch settles; Subscribe and
// Revalidate discard it, tests wait on it.
func (s *Store) launch(key Key) <-chan struct{} {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done := make(chan struct{})
		close(done)
		return done
	}
	if done, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		return done
	}
	done := make(chan struct{})
	s.inflight[key] = done
	s.mu.Unlock()

	go s.run(key, done)
	return done
}

func (s *Store) run(key Key, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	value, err := s.fetch(ctx, key)

	s.mu.Lock()
	delete(s.inflight, key)
	if s.closed {
		s.mu.Unlock()
		return
	}
	rec, ok := s.entries[key]
	if !ok {
		rec = &record{}
		s.entries[key] = rec
	}
	if err != nil {
		// Stale-but-shown: keep the previous value, record the error.
		rec.err = err
		s.mu.Unlock()
		s.logger.Warn("revalidation failed", "key", key, "error", err)
		s.notify(key)
		return
	}
	rec.value = value
	rec.err = nil
	rec.fetchedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug("revalidated", "key", key)
	s.notify(key)
}

// notify is called with the lock released; it re-acquires it so a
// concurrent Close cannot close the channel mid-send.
func (s *Store) notify(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- key:
	default: // Non-blocking if channel full
	}
}
