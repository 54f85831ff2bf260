package cache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// container is one endpoint's entries, loaded in full on first touch.
type container struct {
	mutex   sync.Mutex
	loaded  bool
	entries map[string][]byte
	changed map[string]struct{}
	removed map[string]struct{}
	reset   bool
}

func newContainer() *container {
	return &container{
		entries: make(map[string][]byte),
		changed: make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

func (c *container) dirty() bool {
	return c.reset || len(c.changed) > 0 || len(c.removed) > 0
}

func (c *container) markSaved() {
	c.changed = make(map[string]struct{})
	c.removed = make(map[string]struct{})
	c.reset = false
}

// Store is the pokeapi.Cache implementation backed by a Backend.
type Store struct {
	backend Backend
	logger  pokeapi.Logger
	maxAge  time.Duration
	now     func() time.Time

	mutex      sync.Mutex
	containers map[string]*container
	closed     bool
	closeOnce  sync.Once

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxAge makes entries older than maxAge read as misses. Zero keeps entries forever.
func WithMaxAge(maxAge time.Duration) StoreOption {
	return func(s *Store) {
		s.maxAge = maxAge
	}
}

// WithClock replaces time.Now as the source of entry timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store over backend. A nil logger discards logs.
func NewStore(backend Backend, logger pokeapi.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = pokeapi.NopLogger{}
	}

	store := &Store{
		backend:    backend,
		logger:     logger,
		now:        time.Now,
		containers: make(map[string]*container),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Has reports whether a fresh entry is cached under key for endpoint.
func (s *Store) Has(ctx context.Context, endpoint, key string) bool {
	c, err := s.acquire(ctx, endpoint)
	if err != nil {
		return false
	}
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]

	return ok && !s.expired(entry)
}

// expired reports whether entry is older than the max age. Unreadable
// stamps are left to decodeEntry.
func (s *Store) expired(entry []byte) bool {
	if s.maxAge <= 0 {
		return false
	}

	storedAt, err := entryStoredAt(entry)
	if err != nil {
		return false
	}

	return s.now().Sub(storedAt) > s.maxAge
}

// Get returns the raw bytes stored under key, or an error wrapping
// pokeapi.ErrCacheMiss or pokeapi.ErrCacheIO.
func (s *Store) Get(ctx context.Context, endpoint, key string) ([]byte, error) {
	c, err := s.acquire(ctx, endpoint)
	if err != nil {
		s.misses.Add(1)

		return nil, err
	}

	entry, ok := c.entries[key]
	c.mutex.Unlock()

	if !ok {
		s.misses.Add(1)

		return nil, fmt.Errorf("%w: %s/%s", pokeapi.ErrCacheMiss, endpoint, key)
	}

	if s.expired(entry) {
		s.misses.Add(1)

		return nil, fmt.Errorf("%w: %s/%s expired", pokeapi.ErrCacheMiss, endpoint, key)
	}

	raw, err := decodeEntry(entry)
	if err != nil {
		s.misses.Add(1)

		return nil, fmt.Errorf("%w: decoding %s/%s: %w", pokeapi.ErrCacheIO, endpoint, key, err)
	}

	s.hits.Add(1)

	return raw, nil
}

// Put stores raw under key, replacing any previous entry.
// The entry is kept in memory even when the container could not be loaded.
func (s *Store) Put(ctx context.Context, endpoint, key string, raw []byte) error {
	entry, err := encodeEntry(raw, s.now())
	if err != nil {
		return fmt.Errorf("%w: encoding %s/%s: %w", pokeapi.ErrCacheIO, endpoint, key, err)
	}

	c, err := s.lookup(endpoint)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if loadErr := s.load(ctx, endpoint, c); loadErr != nil {
		s.logger.Warn("cache container unavailable, keeping entry in memory", map[string]interface{}{
			"endpoint": endpoint,
			"error":    loadErr.Error(),
		})
	}

	c.entries[key] = entry
	c.changed[key] = struct{}{}
	delete(c.removed, key)
	s.sets.Add(1)

	return nil
}

// Remove deletes key from endpoint.
func (s *Store) Remove(ctx context.Context, endpoint, key string) error {
	c, err := s.acquire(ctx, endpoint)
	if err != nil {
		return err
	}
	defer c.mutex.Unlock()

	if _, ok := c.entries[key]; !ok {
		return nil
	}

	delete(c.entries, key)
	delete(c.changed, key)
	c.removed[key] = struct{}{}

	return nil
}

// Clear drops every entry of endpoint, or of every known endpoint when endpoint is empty.
// Persisted containers are emptied on the next Flush.
func (s *Store) Clear(ctx context.Context, endpoint string) error {
	endpoints := []string{endpoint}
	if endpoint == "" {
		endpoints = pokeapi.KnownEndpoints()
	}

	for _, name := range endpoints {
		c, err := s.lookup(name)
		if err != nil {
			return err
		}

		c.mutex.Lock()
		c.entries = make(map[string][]byte)
		c.changed = make(map[string]struct{})
		c.removed = make(map[string]struct{})
		c.reset = true
		c.loaded = true
		c.mutex.Unlock()
	}

	return nil
}

// Flush saves every dirty container. A failing container does not stop the
// others. The error wraps pokeapi.ErrCacheIO when only some containers could
// not be saved and pokeapi.ErrCacheUnavailable when none could.
func (s *Store) Flush(ctx context.Context) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()

		return fmt.Errorf("%w: %w", pokeapi.ErrCacheUnavailable, pokeapi.ErrCacheClosed)
	}

	names := slices.Sorted(maps.Keys(s.containers))
	containers := make([]*container, len(names))

	for i, name := range names {
		containers[i] = s.containers[name]
	}
	s.mutex.Unlock()

	var (
		errs    error
		saved   int
		pending int
	)

	for i, c := range containers {
		dirty, err := s.flushContainer(ctx, names[i], c)
		if !dirty {
			continue
		}

		pending++

		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", names[i], err))

			continue
		}

		saved++
	}

	if errs == nil {
		return nil
	}

	if saved == 0 {
		return fmt.Errorf("%w: %d of %d containers failed: %w", pokeapi.ErrCacheUnavailable, pending-saved, pending, errs)
	}

	return fmt.Errorf("%w: %d of %d containers failed: %w", pokeapi.ErrCacheIO, pending-saved, pending, errs)
}

// flushContainer saves c when it is dirty and reports whether it was.
func (s *Store) flushContainer(ctx context.Context, endpoint string, c *container) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.dirty() {
		return false, nil
	}

	if !c.reset {
		if err := s.load(ctx, endpoint, c); err != nil {
			return true, err
		}
	}

	snapshot := &Snapshot{
		Entries: maps.Clone(c.entries),
		Changed: slices.Sorted(maps.Keys(c.changed)),
		Removed: slices.Sorted(maps.Keys(c.removed)),
		Reset:   c.reset,
	}

	if err := s.backend.Save(ctx, endpoint, snapshot); err != nil {
		return true, err
	}

	c.markSaved()

	s.logger.Debug("cache container saved", map[string]interface{}{
		"endpoint": endpoint,
		"entries":  len(snapshot.Entries),
		"changed":  len(snapshot.Changed),
	})

	return true, nil
}

// Stats returns the cache counters.
func (s *Store) Stats() pokeapi.CacheStats {
	stats := pokeapi.CacheStats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Sets:   s.sets.Load(),
	}

	s.mutex.Lock()
	containers := slices.Collect(maps.Values(s.containers))
	s.mutex.Unlock()

	for _, c := range containers {
		c.mutex.Lock()

		if c.loaded && len(c.entries) > 0 {
			stats.Endpoints++
			stats.Entries += len(c.entries)
		}

		if c.dirty() {
			stats.Dirty++
		}

		c.mutex.Unlock()
	}

	return stats
}

// Close flushes pending writes and releases the backend. The flush error is returned as-is.
func (s *Store) Close() error {
	var err error

	s.closeOnce.Do(func() {
		flushErr := s.Flush(context.Background())

		s.mutex.Lock()
		s.closed = true
		s.mutex.Unlock()

		err = multierr.Append(flushErr, s.backend.Close())
	})

	return err
}

// lookup returns the container of endpoint, creating it unloaded.
func (s *Store) lookup(endpoint string) (*container, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, pokeapi.ErrCacheClosed
	}

	c, ok := s.containers[endpoint]
	if !ok {
		c = newContainer()
		s.containers[endpoint] = c
	}

	return c, nil
}

// acquire returns the loaded container of endpoint with its mutex held.
func (s *Store) acquire(ctx context.Context, endpoint string) (*container, error) {
	c, err := s.lookup(endpoint)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()

	if err := s.load(ctx, endpoint, c); err != nil {
		c.mutex.Unlock()

		s.logger.Warn("cache container unavailable", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})

		return nil, err
	}

	return c, nil
}

// load fills c from the backend once. Entries written before a successful load win.
// The caller holds c.mutex.
func (s *Store) load(ctx context.Context, endpoint string, c *container) error {
	if c.loaded {
		return nil
	}

	persisted, err := s.backend.Load(ctx, endpoint)
	if errors.Is(err, ErrCorruptContainer) {
		s.logger.Warn("discarding unreadable cache container", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})

		c.loaded = true
		c.reset = true

		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: loading %s: %w", pokeapi.ErrCacheIO, endpoint, err)
	}

	for key, entry := range persisted {
		if _, removed := c.removed[key]; removed {
			continue
		}

		if _, ok := c.entries[key]; !ok {
			c.entries[key] = entry
		}
	}

	c.loaded = true

	s.logger.Debug("cache container loaded", map[string]interface{}{
		"endpoint": endpoint,
		"entries":  len(persisted),
	})

	return nil
}
