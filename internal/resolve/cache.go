package resolve

import (
	"sync"

	"fieldvault-mcp-server/internal/entry"
)

// Cache mirrors the durable entry collection for read-heavy, latency-
// sensitive lookups. Field hover and focus events arrive at sub-100ms
// cadence; they must never pay a storage round-trip, so reads serve the
// last snapshot and staleness is bounded by the mutation-notification
// channel, not by event frequency.
type Cache struct {
	mu       sync.RWMutex
	snapshot []entry.Entry
	valid    bool
}

// NewCache returns an empty, invalid cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the last-known snapshot when valid, else an empty collection.
// It never blocks on storage.
func (c *Cache) Get() []entry.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil
	}
	return c.snapshot
}

// Invalidate atomically replaces the snapshot and marks it valid. Invoked
// whenever the durable collaborator reports a change; the cache is replaced
// wholesale, never patched incrementally.
func (c *Cache) Invalidate(snapshot []entry.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.valid = true
}

// Valid reports whether a snapshot has been installed yet.
func (c *Cache) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid
}
