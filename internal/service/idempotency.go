package service

import (
	"sync"
	"time"
)

// idempotencyCache remembers recently processed operation keys so that
// network retries of RecordTurn and EndSession do not double-apply their
// effects. Entries expire after a short window; the cache is a
// best-effort dedupe, not a durable log.
type idempotencyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]idemEntry
}

type idemEntry struct {
	leadID  int64
	expires time.Time
}

func newIdempotencyCache(ttl time.Duration) *idempotencyCache {
	return &idempotencyCache{
		ttl:     ttl,
		entries: make(map[string]idemEntry),
	}
}

// lookup returns the lead recorded under key, if the key is still live.
func (c *idempotencyCache) lookup(key string) (int64, bool) {
	if key == "" {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return 0, false
	}
	return e.leadID, true
}

// remember records key against leadID and prunes expired entries.
func (c *idempotencyCache) remember(key string, leadID int64) {
	if key == "" {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = idemEntry{leadID: leadID, expires: now.Add(c.ttl)}
}
