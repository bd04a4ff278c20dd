/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-cachebatcher/asynccache"
	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/cachebatcher"
	"github.com/acronis/go-cachebatcher/internal/ratelimit"
	"github.com/acronis/go-cachebatcher/log"
)

const (
	metricsNamespace  = "cachebatcher_bench"
	idleCheckInterval = time.Millisecond
)

// Summary describes results of the benchmark.
type Summary struct {
	Requests int
	Hits     int
	Misses   int
	Dropped  int
	Elapsed  time.Duration
	Batcher  cachebatcher.Stats
}

func keyName(i int) string {
	return "key-" + strconv.Itoa(i)
}

func valueFor(i int) []byte {
	return []byte("value-" + strconv.Itoa(i))
}

// runBench seeds every other key, fires lookups through the batcher and waits until all of them complete.
func runBench(
	ctx context.Context, cfg *AppConfig, registerer prometheus.Registerer, logger log.FieldLogger,
) (Summary, error) {
	b, closeBackend, err := newBackend(cfg, registerer, logger)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			logger.Error("failed to close backend", log.Error(closeErr))
		}
	}()

	batcherMetrics := cachebatcher.NewPrometheusMetricsWithOpts(cachebatcher.PrometheusMetricsOpts{Namespace: metricsNamespace})
	registerer.MustRegister(batcherMetrics.DroppedGets, batcherMetrics.QueuedGets, batcherMetrics.LastBatchSize)
	batcher, err := cachebatcher.NewWithConfig(b, cfg.Batcher, cachebatcher.Opts{
		MetricsCollector: batcherMetrics,
		Logger:           logger,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("create batcher: %w", err)
	}
	logger.Info("benchmark started",
		log.CacheName(batcher.Name()),
		log.Int("requests", cfg.Bench.Requests),
		log.Int("concurrency", cfg.Bench.Concurrency),
		log.String("rate", cfg.Bench.Rate.String()),
	)

	// Seeding waits for every full async queue, so no Put is retired.
	seedBatch := cfg.AsyncCache.MaxQueueSize
	if seedBatch <= 0 {
		seedBatch = asynccache.DefaultMaxQueueSize
	}
	for i, queued := 0, 0; i < cfg.Bench.Keys; i += 2 {
		b.Put(keyName(i), valueFor(i))
		if queued++; queued%seedBatch == 0 || i+2 >= cfg.Bench.Keys {
			if err = cachebatcher.WaitForIdle(ctx, outstandingCounter{b}, idleCheckInterval); err != nil {
				return Summary{}, fmt.Errorf("wait for seeding: %w", err)
			}
		}
	}

	var limiter ratelimit.Limiter
	if !cfg.Bench.Rate.IsZero() {
		if limiter, err = ratelimit.NewLimiter(cfg.Bench.RateAlgorithm, cfg.Bench.Rate, cfg.Bench.RateBurst); err != nil {
			return Summary{}, fmt.Errorf("create rate limiter: %w", err)
		}
	}

	var hits, misses, dropped, issued atomic.Int64
	onDone := cache.CallbackFunc(func(outcome cache.Outcome) {
		switch {
		case outcome.State == cache.StateDropped:
			dropped.Inc()
		case outcome.Found():
			hits.Inc()
		default:
			misses.Inc()
		}
	})

	startTime := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Bench.Concurrency; w++ {
		eg.Go(func() error {
			for issued.Inc() <= int64(cfg.Bench.Requests) {
				if limiter != nil {
					if waitErr := ratelimit.Wait(egCtx, limiter); waitErr != nil {
						return waitErr
					}
				} else if egCtx.Err() != nil {
					return egCtx.Err()
				}
				batcher.Get(keyName(rand.Intn(cfg.Bench.Keys)), onDone)
			}
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return Summary{}, fmt.Errorf("issue lookups: %w", err)
	}
	if err = cachebatcher.WaitForIdle(ctx, batcher, idleCheckInterval); err != nil {
		return Summary{}, fmt.Errorf("wait for lookups: %w", err)
	}

	summary := Summary{
		Requests: cfg.Bench.Requests,
		Hits:     int(hits.Load()),
		Misses:   int(misses.Load()),
		Dropped:  int(dropped.Load()),
		Elapsed:  time.Since(startTime),
		Batcher:  batcher.Stats(),
	}
	logger.Info("benchmark finished",
		log.Int("requests", summary.Requests),
		log.Int("hits", summary.Hits),
		log.Int("misses", summary.Misses),
		log.Int("dropped", summary.Dropped),
		log.Int("last_batch_size", batcher.LastBatchSize()),
		log.Duration("elapsed", summary.Elapsed),
		log.Float64("lookups_per_sec", float64(summary.Requests)/summary.Elapsed.Seconds()),
	)
	return summary, nil
}
