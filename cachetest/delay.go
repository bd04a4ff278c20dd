/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachetest

import (
	"sync"

	"github.com/acronis/go-cachebatcher/cache"
)

// DelayCache wraps a cache and holds the outcomes of lookups for delayed keys
// until the key is released.
type DelayCache struct {
	backend cache.Cache

	mu        sync.Mutex
	delayed   map[string]bool
	held      map[string][]heldLookup
	gets      int
	multiGets int
	sick      bool
}

type heldLookup struct {
	cb      cache.Callback
	outcome cache.Outcome
}

var _ cache.Cache = (*DelayCache)(nil)
var _ cache.HealthChecker = (*DelayCache)(nil)

// NewDelayCache creates a new DelayCache on top of the backend.
func NewDelayCache(backend cache.Cache) *DelayCache {
	return &DelayCache{
		backend: backend,
		delayed: make(map[string]bool),
		held:    make(map[string][]heldLookup),
	}
}

// DelayKey makes lookups of the key wait for ReleaseKey.
func (c *DelayCache) DelayKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delayed[key] = true
}

// ReleaseKey stops delaying the key and delivers the held outcomes on the calling goroutine
// in the order the lookups were completed by the backend.
func (c *DelayCache) ReleaseKey(key string) {
	c.mu.Lock()
	delete(c.delayed, key)
	held := c.held[key]
	delete(c.held, key)
	c.mu.Unlock()

	for _, h := range held {
		h.cb.Done(h.outcome)
	}
}

// Held returns the number of lookups of the key waiting for ReleaseKey.
func (c *DelayCache) Held(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held[key])
}

// Gets returns the number of Get calls received.
func (c *DelayCache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// MultiGets returns the number of MultiGet calls received.
func (c *DelayCache) MultiGets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.multiGets
}

// Get implements cache.Cache.
func (c *DelayCache) Get(key string, cb cache.Callback) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	c.backend.Get(key, c.wrap(key, cb))
}

// MultiGet implements cache.Cache.
func (c *DelayCache) MultiGet(reqs []cache.Request) {
	c.mu.Lock()
	c.multiGets++
	c.mu.Unlock()
	wrapped := make([]cache.Request, len(reqs))
	for i, req := range reqs {
		wrapped[i] = cache.Request{Key: req.Key, Callback: c.wrap(req.Key, req.Callback)}
	}
	c.backend.MultiGet(wrapped)
}

// Put implements cache.Cache.
func (c *DelayCache) Put(key string, value []byte) {
	c.backend.Put(key, value)
}

// Delete implements cache.Cache.
func (c *DelayCache) Delete(key string) {
	c.backend.Delete(key)
}

// SetHealthy changes the health reported by IsHealthy. The cache is healthy by default.
// An unhealthy DelayCache still serves operations: callers are expected to check the health.
func (c *DelayCache) SetHealthy(healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sick = !healthy
}

// IsHealthy implements cache.HealthChecker.
func (c *DelayCache) IsHealthy() bool {
	c.mu.Lock()
	sick := c.sick
	c.mu.Unlock()
	return !sick && cache.IsHealthy(c.backend)
}

// Name implements cache.Cache.
func (c *DelayCache) Name() string {
	return cache.FormatName("Delay", c.backend)
}

func (c *DelayCache) wrap(key string, cb cache.Callback) cache.Callback {
	return cache.CallbackFunc(func(outcome cache.Outcome) {
		c.mu.Lock()
		if c.delayed[key] {
			c.held[key] = append(c.held[key], heldLookup{cb: cb, outcome: outcome})
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		cb.Done(outcome)
	})
}
