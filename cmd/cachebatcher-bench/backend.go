/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachebatcher/asynccache"
	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/log"
	"github.com/acronis/go-cachebatcher/lrucache"
	"github.com/acronis/go-cachebatcher/rediscache"
)

// latencyCache emulates a slow blocking store by sleeping before every lookup.
type latencyCache struct {
	cache.Cache
	latency time.Duration
}

func (c *latencyCache) Get(key string, cb cache.Callback) {
	time.Sleep(c.latency)
	c.Cache.Get(key, cb)
}

func (c *latencyCache) MultiGet(reqs []cache.Request) {
	time.Sleep(c.latency)
	c.Cache.MultiGet(reqs)
}

func (c *latencyCache) Name() string {
	return cache.FormatName("Latency", c.Cache)
}

// backend is a cache the batcher dispatches to.
// OutstandingOperations is used for waiting until seeding is finished.
type backend interface {
	cache.Cache
	OutstandingOperations() int
}

// outstandingCounter adapts backend to cachebatcher.PendingCounter.
type outstandingCounter struct {
	backend
}

func (c outstandingCounter) Pending() int {
	return c.OutstandingOperations()
}

func newBackend(
	cfg *AppConfig, registerer prometheus.Registerer, logger log.FieldLogger,
) (b backend, closeFn func() error, err error) {
	switch cfg.Bench.Backend {
	case backendMemory:
		lruMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: metricsNamespace})
		registerer.MustRegister(
			lruMetrics.EntriesAmount, lruMetrics.SizeBytes,
			lruMetrics.HitsTotal, lruMetrics.MissesTotal, lruMetrics.EvictionsTotal,
		)
		lru, lruErr := lrucache.NewWithConfig(cfg.LRUCache, lruMetrics)
		if lruErr != nil {
			return nil, nil, fmt.Errorf("create LRU cache: %w", lruErr)
		}
		async, asyncErr := asynccache.NewWithConfig(&latencyCache{Cache: lru, latency: cfg.Bench.Latency}, cfg.AsyncCache, logger)
		if asyncErr != nil {
			return nil, nil, fmt.Errorf("create async cache: %w", asyncErr)
		}
		return async, func() error { async.Close(); return nil }, nil

	case backendRedis:
		redisCache, redisErr := rediscache.NewWithConfig(cfg.RedisCache, logger)
		if redisErr != nil {
			return nil, nil, fmt.Errorf("create redis cache: %w", redisErr)
		}
		return redisCache, redisCache.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Bench.Backend)
}
