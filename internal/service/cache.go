package service

import (
	"sync"
	"time"
)

// LocationRecord is the cached view of a tracker. Records are replaced
// wholesale on update, never mutated in place.
type LocationRecord struct {
	Latitude  float64
	Longitude float64
	Address   string
	Tracking  bool
	LastSeen  int64 // unix milliseconds
}

type cacheEntry struct {
	record   LocationRecord
	storedAt time.Time
}

// LocationCache maps user keys to their most recent location with a short
// TTL. Expiry is checked both lazily on Get and eagerly via Cleanup, so
// correctness does not depend on the sweep cadence.
type LocationCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func NewLocationCache(ttl time.Duration) *LocationCache {
	return &LocationCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *LocationCache) Set(key string, record LocationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		record:   record,
		storedAt: time.Now(),
	}
}

// Get returns the record for key if it is present and unexpired. A
// found-but-expired entry is removed as a side effect.
func (c *LocationCache) Get(key string) (LocationRecord, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return LocationRecord{}, false
	}

	if c.expired(entry, time.Now()) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry in the meantime.
		if current, ok := c.entries[key]; ok && c.expired(current, time.Now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return LocationRecord{}, false
	}

	return entry.record, true
}

func (c *LocationCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Cleanup removes every expired entry. Called by the sweeper so memory
// stays bounded even for keys that are never read again.
func (c *LocationCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
		}
	}
}

// Size reports the number of live entries; expired-but-unswept entries are
// never counted.
func (c *LocationCache) Size() int {
	c.Cleanup()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a point-in-time copy of all unexpired records. The copy
// is safe to iterate without observing subsequent mutations.
func (c *LocationCache) Snapshot() map[string]LocationRecord {
	c.Cleanup()

	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]LocationRecord, len(c.entries))
	for key, entry := range c.entries {
		snapshot[key] = entry.record
	}
	return snapshot
}

func (c *LocationCache) expired(entry cacheEntry, now time.Time) bool {
	return now.Sub(entry.storedAt) > c.ttl
}
