package feedcache

import "sync"

// Patch rewrites a cached value. current is a private copy and nil when the key is empty.
// Returning nil leaves the key unchanged.
type Patch func(current Value) Value

// Mutation tracks the speculative state of one write.
// Every key it touches is snapshotted before the first patch, so Rollback
// puts the cache back exactly as it was.
type Mutation struct {
	cache *Cache

	mu       sync.Mutex
	snapshot Snapshot
	tempIDs  map[Key]string
	finished bool
}

// BeginMutation cancels the reads in flight for keys and snapshots them.
func (c *Cache) BeginMutation(keys ...Key) *Mutation {
	for _, key := range keys {
		c.Cancel(key)
	}
	return &Mutation{
		cache:    c,
		snapshot: c.Snapshot(keys...),
		tempIDs:  make(map[Key]string),
	}
}

// Keys returns the keys covered by the mutation.
func (m *Mutation) Keys() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]Key, 0, len(m.snapshot))
	for key := range m.snapshot {
		keys = append(keys, key)
	}
	return keys
}

// TempID returns the temporary id placed under key, if any.
func (m *Mutation) TempID(key Key) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempIDs[key]
}

// ApplyOptimistic patches key with the speculative result.
// tempID names the placeholder entity the patch inserted, or "" when it only modified existing ones.
// A key outside the mutation is snapshotted on first use.
func (m *Mutation) ApplyOptimistic(key Key, patch Patch, tempID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return
	}
	if _, ok := m.snapshot[key]; !ok {
		m.cache.Cancel(key)
		for k, v := range m.cache.Snapshot(key) {
			m.snapshot[k] = v
		}
	}
	if tempID != "" {
		m.tempIDs[key] = tempID
	}
	m.cache.apply(key, patch)
}

// Commit reconciles key with the server result.
func (m *Mutation) Commit(key Key, patch Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return
	}
	m.cache.apply(key, patch)
}

// Done ends the mutation. Later calls have no effect.
func (m *Mutation) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
}

// Rollback restores every snapshotted key in one step and ends the mutation.
// It reports false when the mutation had already ended.
func (m *Mutation) Rollback() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return false
	}
	m.finished = true
	m.cache.Restore(m.snapshot)
	return true
}

// apply runs patch on a copy of key's value and stores the result.
// A pending invalidation survives the patch. A value the patch builds in an
// empty key was never loaded from the server, so it is stored stale and the
// next Fetch replaces it.
func (c *Cache) apply(key Key, patch Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slot(key)
	next := patch(cloneValue(s.value))
	if next == nil {
		return
	}
	stale := s.stale || s.value == nil
	c.write(key, cloneValue(next))
	s.stale = stale
}
