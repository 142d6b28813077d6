package scoring

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"fantasy-backtest/internal/metrics"
	"fantasy-backtest/internal/model"
)

// Cache holds factor score sets keyed by (player, game). Weights never enter
// the key, so one entry serves every weight trial.
// Safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	store  map[string]model.FactorScoreSet
	hits   int64
	misses int64
}

// CacheStats is a point-in-time view of cache usage.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func NewCache() *Cache {
	return &Cache{store: make(map[string]model.FactorScoreSet)}
}

// Get returns a copy of the cached set.
func (c *Cache) Get(key string) (model.FactorScoreSet, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[key]
	if !ok {
		c.misses++
		metrics.ScoreCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.hits++
	metrics.ScoreCacheLookups.WithLabelValues("hit").Inc()
	return cloneScores(entry), true
}

func (c *Cache) Set(key string, scores model.FactorScoreSet) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cloneScores(scores)
}

// Clear removes all entries and resets counters.
func (c *Cache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]model.FactorScoreSet)
	c.hits, c.misses = 0, 0
}

func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{Entries: len(c.store), Hits: c.hits, Misses: c.misses}
}

// CacheKey builds the (player, game) key. The key carries a fingerprint of
// every factor input, so a reloaded game with new conditions or injury
// status misses instead of returning the old scores.
func CacheKey(player string, g model.GameContext) string {
	return strings.ToLower(strings.TrimSpace(player)) + "|" + g.Key() + "|" + inputFingerprint(g)
}

// inputFingerprint hashes the game fields factors read. Counting stats are
// outcomes and stay out of it.
func inputFingerprint(g model.GameContext) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%t|%g|%g|%s|%s|%s|%d|%s|%d",
		g.Team, g.Date.Format("2006-01-02"), g.GameTime, g.Opponent, g.Venue, g.IsHome,
		g.Temperature, g.WindSpeed, g.WindDirection,
		g.BatterHand, g.PitcherHand, g.BattingOrder, g.InjuryStatus, g.RestDays)
	return fmt.Sprintf("%016x", h.Sum64())
}

func cloneScores(s model.FactorScoreSet) model.FactorScoreSet {
	out := make(model.FactorScoreSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
