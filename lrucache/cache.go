/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-cachebatcher/cache"
)

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) size() uint64 {
	return uint64(len(e.key) + len(e.value))
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// Cache represents an LRU cache bounded by the total size of keys and values in bytes.
type Cache struct {
	maxSize    uint64
	defaultTTL time.Duration

	mu        sync.Mutex
	lruList   *list.List
	entries   map[string]*list.Element // value is a lruList element
	size      uint64
	hits      uint64
	misses    uint64
	evictions uint64

	metricsCollector MetricsCollector
}

var _ cache.Cache = (*Cache)(nil)

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is the TTL for the cache entries. Zero means no expiration.
	// Expired entries are not removed immediately,
	// but only when they are accessed or during periodic cleanup (see RunPeriodicCleanup).
	DefaultTTL time.Duration
}

// New creates a new Cache with the provided maximum size in bytes and metrics collector.
func New(maxSize uint64, metricsCollector MetricsCollector) (*Cache, error) {
	return NewWithOpts(maxSize, metricsCollector, Options{})
}

// NewWithOpts creates a new Cache with the provided maximum size in bytes, metrics collector, and options.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func NewWithOpts(maxSize uint64, metricsCollector MetricsCollector, opts Options) (*Cache, error) {
	if maxSize == 0 {
		return nil, fmt.Errorf("maxSize must be greater than 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &Cache{
		maxSize:          maxSize,
		defaultTTL:       opts.DefaultTTL,
		lruList:          list.New(),
		entries:          make(map[string]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// NewWithConfig creates a new Cache with the maximum size from the loaded configuration.
func NewWithConfig(cfg *Config, metricsCollector MetricsCollector) (*Cache, error) {
	return NewWithOpts(uint64(cfg.MaxSize), metricsCollector, Options{DefaultTTL: cfg.DefaultTTL})
}

// Name implements cache.Cache.
func (c *Cache) Name() string {
	return "LRU"
}

// Get looks up the key and calls cb before returning.
func (c *Cache) Get(key string, cb cache.Callback) {
	c.mu.Lock()
	value, ok := c.get(key)
	c.mu.Unlock()

	if !ok {
		cb.Done(cache.NotFound())
		return
	}
	cache.ValidateAndReport(key, cache.Available(value), cb)
}

// MultiGet looks up every key in order. All callbacks are called before returning.
func (c *Cache) MultiGet(reqs []cache.Request) {
	cache.MultiGetByOne(c, reqs)
}

// Put stores the value replacing the previous one and evicts the least recently used entries
// until the cache fits into its maximum size.
// A value that alone does not fit into the cache is not stored, and the previous value is removed.
func (c *Cache) Put(key string, value []byte) {
	c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL is like Put but with the explicit TTL.
// The cache keeps its own copy of the value.
func (c *Cache) PutWithTTL(key string, value []byte, ttl time.Duration) {
	entry := &cacheEntry{key: key, value: bytes.Clone(value)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
	if entry.size() > c.maxSize {
		c.updateAmountMetrics()
		return
	}
	c.entries[key] = c.lruList.PushFront(entry)
	c.size += entry.size()

	evicted := 0
	for c.size > c.maxSize {
		c.removeElement(c.lruList.Back())
		evicted++
	}
	if evicted > 0 {
		c.evictions += uint64(evicted)
		c.metricsCollector.AddEvictions(evicted)
	}
	c.updateAmountMetrics()
}

// Delete removes the key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
		c.updateAmountMetrics()
	}
}

// Clear removes all entries.
// Removed entries are not counted as evictions, and hit/miss counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lruList.Init()
	c.size = 0
	c.updateAmountMetrics()
}

// SizeBytes returns the total size of keys and values stored in the cache.
func (c *Cache) SizeBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSizeBytes returns the maximum size of the cache.
func (c *Cache) MaxSizeBytes() uint64 {
	return c.maxSize
}

// NumElements returns the number of entries in the cache.
func (c *Cache) NumElements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NumHits returns the number of successful lookups.
func (c *Cache) NumHits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// NumMisses returns the number of failed lookups.
func (c *Cache) NumMisses() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// NumEvictions returns the number of entries removed to free up space.
func (c *Cache) NumEvictions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// SanityCheck verifies the internal consistency of the cache.
func (c *Cache) SanityCheck() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lruList.Len() != len(c.entries) {
		return fmt.Errorf("list has %d elements, map has %d", c.lruList.Len(), len(c.entries))
	}
	var size uint64
	for elem := c.lruList.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*cacheEntry)
		if c.entries[entry.key] != elem {
			return fmt.Errorf("entry %q is not indexed", entry.key)
		}
		size += entry.size()
	}
	if size != c.size {
		return fmt.Errorf("accounted size is %d, actual size is %d", c.size, size)
	}
	if c.size > c.maxSize {
		return fmt.Errorf("size %d exceeds maximum %d", c.size, c.maxSize)
	}
	return nil
}

func (c *Cache) get(key string) (value []byte, ok bool) {
	elem, hit := c.entries[key]
	if !hit {
		c.misses++
		c.metricsCollector.IncMisses()
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if entry.expired(time.Now()) {
		c.removeElement(elem)
		c.updateAmountMetrics()
		c.misses++
		c.metricsCollector.IncMisses()
		return nil, false
	}
	c.lruList.MoveToFront(elem)
	c.hits++
	c.metricsCollector.IncHits()
	return bytes.Clone(entry.value), true
}

func (c *Cache) removeElement(elem *list.Element) {
	entry := c.lruList.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.key)
	c.size -= entry.size()
}

func (c *Cache) updateAmountMetrics() {
	c.metricsCollector.SetAmount(len(c.entries))
	c.metricsCollector.SetSizeBytes(c.size)
}

// RunPeriodicCleanup runs a cycle of periodic cleanup of expired entries.
// Entries without expiration time are not affected.
// It's supposed to be run in a separate goroutine.
func (c *Cache) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired(time.Now())
		}
	}
}

func (c *Cache) removeExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, elem := range c.entries {
		if elem.Value.(*cacheEntry).expired(now) {
			c.removeElement(elem)
		}
	}
	c.updateAmountMetrics()
}
