// Package cache provides an in-memory cache of solved puzzles keyed by their
// canonical 81-character form.
//
// Lookups are fronted by a Bloom filter that short-circuits definitive misses
// before the map probe. A false positive only costs the probe; the filter is
// never consulted to prune search, so it can never change an answer.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
)

// SolutionCache is a capacity-bounded map from puzzle to solution. It is safe
// for concurrent use.
type SolutionCache struct {
	mu       sync.RWMutex
	entries  map[string]string
	order    []string // insertion order, oldest first
	capacity int
	seen     *bloom.BloomFilter

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewSolutionCache creates a cache holding at most capacity solutions.
// Capacities below 1 are normalized to 1. The Bloom filter is sized for the
// capacity at a 1% false-positive rate.
func NewSolutionCache(capacity int) *SolutionCache {
	if capacity < 1 {
		capacity = 1
	}
	return &SolutionCache{
		entries:  make(map[string]string, capacity),
		capacity: capacity,
		seen:     bloom.NewWithEstimates(uint(capacity), 0.01),
	}
}

// Get returns the cached solution for puzzle, if present.
func (c *SolutionCache) Get(puzzle string) (string, bool) {
	c.mu.RLock()
	// The filter has no false negatives, so a negative test is a definitive
	// miss and skips the map probe.
	if !c.seen.TestString(puzzle) {
		c.mu.RUnlock()
		c.misses.Add(1)
		return "", false
	}
	solution, ok := c.entries[puzzle]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return solution, ok
}

// Put stores a solution, evicting the oldest entry when the cache is full.
// Evicted keys may linger in the Bloom filter; their next Get falls through
// to the map and misses.
func (c *SolutionCache) Put(puzzle, solution string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[puzzle]; exists {
		c.entries[puzzle] = solution
		return
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions.Add(1)
	}
	c.entries[puzzle] = solution
	c.order = append(c.order, puzzle)
	c.seen.AddString(puzzle)
}

// Len returns the number of cached solutions.
func (c *SolutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// Stats returns a snapshot of the cache counters.
func (c *SolutionCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
		Capacity:  c.capacity,
	}
}
