package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// MemCache is a generic thread-safe LRU cache.
type MemCache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// Config contains in-memory cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{MaxSize: 32}
}

// entry represents a cache entry.
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// lruCache is a thread-safe LRU cache implementation.
type lruCache[K comparable, V any] struct {
	mu        sync.Mutex
	config    Config
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

// NewLRU creates a new LRU cache with the given configuration.
func NewLRU[K comparable, V any](config Config) MemCache[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	return &lruCache[K, V]{
		config:    config,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value from the cache.
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	e := ent.Value.(*entry[K, V])
	if c.config.TTL > 0 && time.Now().After(e.expiresAt) {
		c.removeElement(ent)
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return e.value, true
}

// Put stores a value in the cache.
func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry[K, V])
		e.value = value
		if c.config.TTL > 0 {
			e.expiresAt = time.Now().Add(c.config.TTL)
		}
		return
	}

	e := &entry[K, V]{key: key, value: value}
	if c.config.TTL > 0 {
		e.expiresAt = time.Now().Add(c.config.TTL)
	}
	ent := c.evictList.PushFront(e)
	c.entries[key] = ent

	if c.config.MaxSize > 0 && c.evictList.Len() > c.config.MaxSize {
		c.removeOldest()
	}
}

// Remove removes a value from the cache.
func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

// Clear removes all entries from the cache.
func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element)
	c.evictList.Init()
}

// Len returns the number of entries in the cache.
func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache statistics.
func (c *lruCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

func (c *lruCache[K, V]) removeOldest() {
	if ent := c.evictList.Back(); ent != nil {
		c.removeElement(ent)
		c.stats.Evictions++
	}
}

func (c *lruCache[K, V]) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[K, V])
	delete(c.entries, e.key)
}

// ScoreCache is a specialized in-memory cache for translated score graphs
// keyed by content fingerprint. Cached graphs are logically frozen: Get
// returns a deep working copy, never the stored graph itself.
type ScoreCache struct {
	cache MemCache[string, *score.Score]
}

// NewScoreCache creates a score graph cache.
func NewScoreCache(config Config) *ScoreCache {
	return &ScoreCache{cache: NewLRU[string, *score.Score](config)}
}

// NewDefaultScoreCache creates a score graph cache with default configuration.
func NewDefaultScoreCache() *ScoreCache {
	return NewScoreCache(DefaultConfig())
}

// Get retrieves a working copy of a cached graph by fingerprint.
func (c *ScoreCache) Get(fingerprint string) (*score.Score, bool) {
	s, ok := c.cache.Get(fingerprint)
	if !ok {
		return nil, false
	}
	clone, err := s.Clone()
	if err != nil {
		// An uncloneable graph is useless as a cache entry.
		c.cache.Remove(fingerprint)
		return nil, false
	}
	return clone, true
}

// Put freezes a graph into the cache.
func (c *ScoreCache) Put(fingerprint string, s *score.Score) {
	c.cache.Put(fingerprint, s)
}

// Remove removes a graph from the cache.
func (c *ScoreCache) Remove(fingerprint string) {
	c.cache.Remove(fingerprint)
}

// Clear removes all graphs from the cache.
func (c *ScoreCache) Clear() {
	c.cache.Clear()
}

// Len returns the number of cached graphs.
func (c *ScoreCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *ScoreCache) Stats() Stats {
	return c.cache.Stats()
}
