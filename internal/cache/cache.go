// Package cache provides a TTL-bounded in-memory cache for derived-vector
// query results. Accessors compute the same frames over and over while a
// dashboard user toggles views; memoizing by query key keeps repeated
// queries out of provider storage.
package cache

import (
	"sync"
	"time"

	"simcli/internal/timeseries"
)

// entry is one cached query result.
type entry struct {
	frame     timeseries.Frame
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// FrameCache caches query frames by key with a fixed TTL and a bounded
// entry count. It is safe for concurrent use.
type FrameCache struct {
	entries   map[string]entry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries   int
	MaxSize   int
	HitCount  int64
	MissCount int64
	HitRatio  float64
	TTL       time.Duration
}

const cleanupInterval = 5 * time.Minute

// New creates a frame cache. A maxSize of zero or less disables storage
// entirely; lookups then always miss.
func New(ttl time.Duration, maxSize int) *FrameCache {
	c := &FrameCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a cached frame. Expired entries miss.
func (c *FrameCache) Get(key string) (timeseries.Frame, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		c.missCount++
		return timeseries.Frame{}, false
	}

	e.hitCount++
	c.entries[key] = e
	c.hitCount++

	return e.frame, true
}

// Put stores a frame under the given key, evicting the oldest entry when
// the cache is full.
func (c *FrameCache) Put(key string, frame timeseries.Frame) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = entry{
		frame:     frame,
		cachedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
}

// Invalidate removes one entry.
func (c *FrameCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Stats returns cache statistics.
func (c *FrameCache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}

	return Stats{
		Entries:   len(c.entries),
		MaxSize:   c.maxSize,
		HitCount:  c.hitCount,
		MissCount: c.missCount,
		HitRatio:  ratio,
		TTL:       c.ttl,
	}
}

// Stop terminates the background cleanup goroutine.
func (c *FrameCache) Stop() {
	close(c.stopChan)
}

func (c *FrameCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *FrameCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopChan:
			return
		}
	}
}

var _ timeseries.Cache = (*FrameCache)(nil)
