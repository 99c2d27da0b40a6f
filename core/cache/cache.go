// Package cache keeps recently parsed taxonomies so identical sources are
// harvested once per process.
package cache

import (
	"container/list"
	"sync"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Bytes     int64
}

// Config bounds a cache. Zero means unbounded.
type Config struct {
	MaxSize  int
	MaxBytes int64

	// OnEvict is called with the key of every entry dropped to make room.
	OnEvict func(key string)
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{MaxSize: 64, MaxBytes: 64 << 20}
}

type entry[V any] struct {
	key   string
	value V
	size  int64
}

// LRU is a thread-safe least-recently-used cache with string keys.
type LRU[V any] struct {
	mu      sync.Mutex
	config  Config
	sizeOf  func(V) int64
	entries map[string]*list.Element
	order   *list.List
	stats   Stats
}

// NewLRU creates a cache. sizeOf may be nil when MaxBytes is unused.
func NewLRU[V any](config Config, sizeOf func(V) int64) *LRU[V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	if sizeOf == nil {
		sizeOf = func(V) int64 { return 0 }
	}
	return &LRU[V]{
		config:  config,
		sizeOf:  sizeOf,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the value for key and marks it recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*entry[V]).value, true
}

// Put stores value under key. A value larger than MaxBytes is not kept.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.sizeOf(value)
	if c.config.MaxBytes > 0 && size > c.config.MaxBytes {
		return
	}
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[V])
		c.stats.Bytes += size - e.size
		e.value, e.size = value, size
		c.order.MoveToFront(el)
	} else {
		c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value, size: size})
		c.stats.Bytes += size
	}

	for c.order.Len() > 1 && c.over() {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}
}

func (c *LRU[V]) over() bool {
	if c.config.MaxSize > 0 && c.order.Len() > c.config.MaxSize {
		return true
	}
	return c.config.MaxBytes > 0 && c.stats.Bytes > c.config.MaxBytes
}

// Remove drops key.
func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

// Clear drops every entry. Statistics other than size are kept.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.stats.Bytes = 0
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.order.Len()
	return s
}

func (c *LRU[V]) remove(el *list.Element) {
	c.order.Remove(el)
	e := el.Value.(*entry[V])
	delete(c.entries, e.key)
	c.stats.Bytes -= e.size
	if c.config.OnEvict != nil {
		c.config.OnEvict(e.key)
	}
}

// Taxonomies caches parse results by source name and content digest.
// Cached taxonomies are shared; callers must not modify them.
type Taxonomies struct {
	lru *LRU[*taxonomy.Taxonomy]
}

// NewTaxonomies creates a taxonomy cache sized by source length.
func NewTaxonomies(config Config) *Taxonomies {
	return &Taxonomies{lru: NewLRU(config, func(t *taxonomy.Taxonomy) int64 {
		return int64(len(t.Source))
	})}
}

// Key is the cache key of a source.
func Key(name, text string) string {
	return name + "@" + cas.KeyString(text)
}

// Get returns the cached parse of text under name.
func (c *Taxonomies) Get(name, text string) (*taxonomy.Taxonomy, bool) {
	return c.lru.Get(Key(name, text))
}

// Put caches a parse result under its own source name and key.
func (c *Taxonomies) Put(t *taxonomy.Taxonomy) {
	c.lru.Put(t.SourceName+"@"+t.SourceKey, t)
}

// Stats returns the cache statistics.
func (c *Taxonomies) Stats() Stats {
	return c.lru.Stats()
}

// Clear empties the cache.
func (c *Taxonomies) Clear() {
	c.lru.Clear()
}
