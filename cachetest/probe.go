/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachetest

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachebatcher/cache"
)

// ProbeCache wraps a cache and observes how lookups are dispatched to it:
// how many dispatches (Get or MultiGet calls) are outstanding at the same time and in which order keys arrive.
// A dispatch is outstanding until all of its callbacks are called.
type ProbeCache struct {
	backend cache.Cache

	active atomic.Int64
	peak   atomic.Int64

	mu         sync.Mutex
	dispatches [][]string
}

var _ cache.Cache = (*ProbeCache)(nil)

// NewProbeCache creates a new ProbeCache on top of the backend.
func NewProbeCache(backend cache.Cache) *ProbeCache {
	return &ProbeCache{backend: backend}
}

// Active returns the number of outstanding dispatches.
func (c *ProbeCache) Active() int {
	return int(c.active.Load())
}

// Peak returns the maximum number of simultaneously outstanding dispatches.
func (c *ProbeCache) Peak() int {
	return int(c.peak.Load())
}

// Dispatches returns the keys of every dispatch in the order they were received.
func (c *ProbeCache) Dispatches() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([][]string, len(c.dispatches))
	copy(res, c.dispatches)
	return res
}

// Keys returns all dispatched keys in the order they were received.
func (c *ProbeCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for _, d := range c.dispatches {
		keys = append(keys, d...)
	}
	return keys
}

// Get implements cache.Cache.
func (c *ProbeCache) Get(key string, cb cache.Callback) {
	remaining := c.begin([]string{key})
	c.backend.Get(key, c.wrap(remaining, cb))
}

// MultiGet implements cache.Cache.
func (c *ProbeCache) MultiGet(reqs []cache.Request) {
	keys := make([]string, len(reqs))
	for i, req := range reqs {
		keys[i] = req.Key
	}
	remaining := c.begin(keys)
	wrapped := make([]cache.Request, len(reqs))
	for i, req := range reqs {
		wrapped[i] = cache.Request{Key: req.Key, Callback: c.wrap(remaining, req.Callback)}
	}
	c.backend.MultiGet(wrapped)
}

// Put implements cache.Cache.
func (c *ProbeCache) Put(key string, value []byte) {
	c.backend.Put(key, value)
}

// Delete implements cache.Cache.
func (c *ProbeCache) Delete(key string) {
	c.backend.Delete(key)
}

// IsHealthy implements cache.HealthChecker by asking the wrapped cache.
func (c *ProbeCache) IsHealthy() bool {
	return cache.IsHealthy(c.backend)
}

// Name implements cache.Cache.
func (c *ProbeCache) Name() string {
	return cache.FormatName("Probe", c.backend)
}

func (c *ProbeCache) begin(keys []string) *atomic.Int64 {
	c.mu.Lock()
	c.dispatches = append(c.dispatches, keys)
	c.mu.Unlock()

	active := c.active.Inc()
	for {
		peak := c.peak.Load()
		if active <= peak || c.peak.CompareAndSwap(peak, active) {
			break
		}
	}
	return atomic.NewInt64(int64(len(keys)))
}

// wrap releases the dispatch before passing the outcome on,
// so a dispatch started from the callback is not counted together with the finished one.
func (c *ProbeCache) wrap(remaining *atomic.Int64, cb cache.Callback) cache.Callback {
	return cache.CallbackFunc(func(outcome cache.Outcome) {
		if remaining.Dec() == 0 {
			c.active.Dec()
		}
		cb.Done(outcome)
	})
}
