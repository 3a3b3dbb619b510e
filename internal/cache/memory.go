package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the L1 level. It keeps recently played narration clips in
// memory and evicts the least recently used clip once capacity bytes are in
// use.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int64
	used     int64

	recent *list.List // *clip, most recently used at the front
	clips  map[string]*list.Element
	stats  Stats
}

type clip struct {
	key    string
	audio  []byte
	stored time.Time
}

// NewMemoryCache creates a memory cache holding at most capacity bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		recent:   list.New(),
		clips:    make(map[string]*list.Element),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns the clip stored under key and marks it recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.clips[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.recent.MoveToFront(el)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return el.Value.(*clip).audio, true
}

// Put stores audio under key, evicting older clips to make room.
func (c *MemoryCache) Put(key string, audio []byte) error {
	n := int64(len(audio))
	if n > c.capacity {
		return ErrItemTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.unlinkLocked(key)
	for c.used+n > c.capacity {
		if !c.evictLocked() {
			break
		}
	}
	c.clips[key] = c.recent.PushFront(&clip{key: key, audio: audio, stored: time.Now()})
	c.used += n
	return nil
}

// Delete drops key. Deleting a missing key is not an error.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlinkLocked(key)
	return nil
}

// Clear drops every clip. Statistics are kept.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.clips)
	c.recent.Init()
	c.used = 0
	return nil
}

// Contains reports whether key is cached without touching its recency.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.clips[key]
	return ok
}

// Size returns the bytes in use.
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(c.used, len(c.clips))
}

// Prune drops clips stored more than maxAge ago and returns how many went.
func (c *MemoryCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var stale []string
	for key, el := range c.clips {
		if el.Value.(*clip).stored.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		c.unlinkLocked(key)
	}
	return len(stale)
}

// evictLocked drops the least recently used clip. It reports false when
// there was nothing to drop.
func (c *MemoryCache) evictLocked() bool {
	el := c.recent.Back()
	if el == nil {
		return false
	}
	c.unlinkLocked(el.Value.(*clip).key)
	c.stats.Evictions++
	c.stats.LastEvict = time.Now()
	return true
}

func (c *MemoryCache) unlinkLocked(key string) {
	el, ok := c.clips[key]
	if !ok {
		return
	}
	c.recent.Remove(el)
	delete(c.clips, key)
	c.used -= int64(len(el.Value.(*clip).audio))
}
