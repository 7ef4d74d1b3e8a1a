package market

import (
	"sync"
	"time"
)

// quoteCache memoizes a list of refreshed quotes per key for a short TTL.
// Watchlist reads hit the feed at most once per TTL per account; a follow or
// unfollow invalidates the account's entry immediately.
type quoteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	quotes  []Quote
	expires time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]quoteCacheEntry),
	}
}

func (c *quoteCache) get(key string) ([]Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	quotes := make([]Quote, len(entry.quotes))
	copy(quotes, entry.quotes)
	return quotes, true
}

func (c *quoteCache) put(key string, quotes []Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make([]Quote, len(quotes))
	copy(stored, quotes)
	c.entries[key] = quoteCacheEntry{quotes: stored, expires: time.Now().Add(c.ttl)}
}

func (c *quoteCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
