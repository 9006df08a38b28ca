package feedcache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrClosed is returned by reads on a closed cache.
	ErrClosed = errors.New("feed cache closed")

	// ErrSuperseded is returned when a read was cancelled or overwritten before its response arrived.
	ErrSuperseded = errors.New("read superseded")
)

// Fetcher loads a value from the server.
type Fetcher func(ctx context.Context) (Value, error)

// slot is the cache state of one key.
type slot struct {
	value Value
	stale bool

	// generation increases on every write to the key.
	// A read only lands if the generation it started with is still current.
	generation uint64
	cancel     context.CancelFunc
}

// SnapshotEntry is the saved state of one key. A nil Value means the key was empty.
type SnapshotEntry struct {
	Value Value
	Stale bool
}

// Snapshot is a point-in-time copy of a set of keys.
type Snapshot map[Key]SnapshotEntry

// Cache is the client-side replica of feed queries.
// All writes go through its methods; values handed out are copies.
type Cache struct {
	mu     sync.Mutex
	slots  map[Key]*slot
	closed bool
	logger *slog.Logger
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger for the cache.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		slots:  make(map[Key]*slot),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached value.
func (c *Cache) Get(key Key) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok || s.value == nil {
		return nil, false
	}
	return s.value.clone(), true
}

// Set replaces the value of key. Setting nil empties the key.
// Any read in flight for the key is superseded.
func (c *Cache) Set(key Key, value Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.write(key, cloneValue(value))
}

// Cancel aborts the read in flight for key, if any. Its response will be discarded.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		return
	}
	c.supersede(s)
}

// Snapshot copies the current values of keys.
func (c *Cache) Snapshot(keys ...Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		if s, ok := c.slots[key]; ok {
			snap[key] = SnapshotEntry{Value: cloneValue(s.value), Stale: s.stale}
			continue
		}
		snap[key] = SnapshotEntry{}
	}
	return snap
}

// Restore writes every key of the snapshot back in one step, stale marks included.
func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range snap {
		c.write(key, cloneValue(entry.Value))
		c.slots[key].stale = entry.Stale
	}
}

// Invalidate marks key stale and aborts its read in flight.
// The value stays readable until the next Fetch replaces it.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		return
	}
	c.supersede(s)
	s.stale = true

	c.logger.Debug("cache key invalidated", slog.String("key", key.String()))
}

// Discard drops key entirely.
func (c *Cache) Discard(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		return
	}
	c.supersede(s)
	delete(c.slots, key)
}

// Close aborts all reads and drops every key. Later reads fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.slots {
		c.supersede(s)
	}
	c.slots = make(map[Key]*slot)
	c.closed = true
}

// Fetch returns the cached value of key, loading it with fetch when the key is empty or stale.
// Each key has at most one read in flight: starting a new one cancels the previous.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher) (Value, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if s, ok := c.slots[key]; ok && s.value != nil && !s.stale {
		v := s.value.clone()
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	return c.load(ctx, key, fetch)
}

// Refresh loads key with fetch regardless of what is cached.
func (c *Cache) Refresh(ctx context.Context, key Key, fetch Fetcher) (Value, error) {
	return c.load(ctx, key, fetch)
}

// KeysHolding returns every cached key whose value contains the message.
func (c *Cache) KeysHolding(messageID string) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []Key
	for key, s := range c.slots {
		if s.value != nil && s.value.Holds(messageID) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Cache) load(ctx context.Context, key Key, fetch Fetcher) (Value, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	s := c.slot(key)
	c.supersede(s)

	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	generation := s.generation
	c.mu.Unlock()

	value, err := fetch(readCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.slots[key]
	if c.closed || !ok || current != s || s.generation != generation {
		cancel()
		c.logger.Debug("discarding superseded read", slog.String("key", key.String()))
		return nil, ErrSuperseded
	}

	s.cancel = nil
	cancel()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	s.value = cloneValue(value)
	s.stale = false
	return cloneValue(value), nil
}

func (c *Cache) slot(key Key) *slot {
	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	return s
}

func (c *Cache) write(key Key, value Value) {
	s := c.slot(key)
	c.supersede(s)
	s.value = value
	s.stale = false
}

// supersede cancels the read in flight and moves the key to a new generation.
func (c *Cache) supersede(s *slot) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}
