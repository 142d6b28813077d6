package data

import (
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	rows      []GameLogRow
	expiresAt time.Time
}

// ResponseCache keeps fetched game logs in memory for a TTL. A nil cache is
// valid and never hits.
type ResponseCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves cached rows if present and not expired.
func (c *ResponseCache) Get(key string) ([]GameLogRow, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return append([]GameLogRow(nil), e.rows...), true
}

func (c *ResponseCache) Set(key string, rows []GameLogRow) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = &cacheEntry{
		rows:      append([]GameLogRow(nil), rows...),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Prune drops expired entries.
func (c *ResponseCache) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
			n++
		}
	}
	return n
}

func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// GenerateCacheKey identifies one player-season request.
func GenerateCacheKey(playerID string, season int) string {
	return fmt.Sprintf("%s:%d", playerID, season)
}
