/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

import (
	"errors"
	"fmt"
	"sync"

	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/log"
)

// Default values for the batcher settings.
const (
	DefaultMaxParallelLookups = 1
	DefaultMaxQueueSize       = 10000
)

// ErrSettingsFrozen is returned when the batcher settings are changed after the first lookup.
var ErrSettingsFrozen = errors.New("batcher settings cannot be changed after the first lookup")

// Opts represents options for the Batcher.
type Opts struct {
	// MaxParallelLookups is the maximum number of dispatches (Get or MultiGet calls)
	// outstanding against the backend at the same time.
	// If zero, DefaultMaxParallelLookups is used.
	MaxParallelLookups int

	// MaxQueueSize is the maximum number of lookups waiting for a free dispatch slot.
	// If zero, DefaultMaxQueueSize is used.
	MaxQueueSize int

	// MetricsCollector is used to collect statistics about admission control.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector

	// Logger is used for reporting dropped lookups and misbehaving backends.
	// It can be nil, in this case, nothing is logged.
	Logger log.FieldLogger
}

// Stats is a snapshot of the batcher state.
type Stats struct {
	// InFlight is the number of dispatches outstanding against the backend.
	InFlight int
	// InFlightLookups is the number of dispatched lookups whose callbacks have not returned yet.
	InFlightLookups int
	// Queued is the number of lookups waiting for a free dispatch slot.
	Queued int
	// LastBatchSize is the number of lookups sent to the backend by the most recent dispatch.
	LastBatchSize int
	// DroppedGets is the total number of lookups refused because the queue was full.
	DroppedGets uint64
	// QueuedGets is the total number of lookups that waited in the queue.
	QueuedGets uint64
}

// Batcher is a cache.Cache that limits the number of parallel dispatches to the backend cache.
// Lookups arriving while all dispatch slots are busy are queued and, once a slot frees up,
// sent to the backend all together as one MultiGet.
//
// Callbacks are never invoked under the internal lock, so they may call Get again.
// Backends are allowed to invoke callbacks synchronously from Get/MultiGet.
type Batcher struct {
	backend cache.Cache
	metrics MetricsCollector
	logger  log.FieldLogger

	mu              sync.Mutex
	maxParallel     int
	frozen          bool
	inFlight        int
	inFlightLookups int
	queue           *pendingQueue
	lastBatchSize   int
	droppedGets     uint64
	queuedGets      uint64
}

var _ cache.Cache = (*Batcher)(nil)
var _ cache.HealthChecker = (*Batcher)(nil)

// lookup is the record of a single Get. It is handed to the backend as the callback,
// so the batcher updates its bookkeeping before the caller learns the outcome.
type lookup struct {
	batcher  *Batcher
	key      string
	callback cache.Callback
	batch    *batch
	done     bool // guarded by batcher.mu
}

// batch is a group of lookups sent to the backend by a single dispatch.
// The dispatch slot is released when all of them are completed.
type batch struct {
	remaining int
}

// Done implements cache.Callback.
func (l *lookup) Done(outcome cache.Outcome) {
	l.batcher.complete(l, outcome)
}

// New creates a new Batcher on top of the backend cache.
func New(backend cache.Cache, opts Opts) (*Batcher, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cache must be specified")
	}
	if opts.MaxParallelLookups < 0 {
		return nil, fmt.Errorf("max parallel lookups should not be negative, got %d", opts.MaxParallelLookups)
	}
	if opts.MaxQueueSize < 0 {
		return nil, fmt.Errorf("max queue size should not be negative, got %d", opts.MaxQueueSize)
	}
	if opts.MaxParallelLookups == 0 {
		opts.MaxParallelLookups = DefaultMaxParallelLookups
	}
	if opts.MaxQueueSize == 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Batcher{
		backend:     backend,
		metrics:     opts.MetricsCollector,
		logger:      opts.Logger,
		maxParallel: opts.MaxParallelLookups,
		queue:       newPendingQueue(opts.MaxQueueSize),
	}, nil
}

// NewWithConfig creates a new Batcher with the settings from the loaded configuration.
// Settings in opts are overridden by the configuration.
func NewWithConfig(backend cache.Cache, cfg *Config, opts Opts) (*Batcher, error) {
	opts.MaxParallelLookups = cfg.MaxParallelLookups
	opts.MaxQueueSize = cfg.MaxQueueSize
	return New(backend, opts)
}

// Get looks up the key in the backend cache, or queues the lookup if all dispatch slots are busy,
// or drops it (reporting cache.StateDropped) if the queue is full.
// It never blocks waiting for the backend.
func (b *Batcher) Get(key string, cb cache.Callback) {
	l := &lookup{batcher: b, key: key, callback: cb}

	b.mu.Lock()
	b.frozen = true
	if b.inFlight < b.maxParallel {
		b.startBatchLocked([]*lookup{l})
		b.mu.Unlock()
		b.backend.Get(key, l)
		return
	}
	if b.queue.pushIfSpace(l) {
		b.queuedGets++
		b.metrics.IncQueuedGets()
		b.mu.Unlock()
		return
	}
	b.droppedGets++
	b.metrics.IncDroppedGets()
	b.mu.Unlock()

	b.logger.Debug("cache lookup dropped, too many pending lookups", log.Key(key))
	cb.Done(cache.Dropped())
}

// MultiGet admits every request in order, as if Get was called for each of them.
func (b *Batcher) MultiGet(reqs []cache.Request) {
	cache.MultiGetByOne(b, reqs)
}

// Put stores the value in the backend cache. Writes are not limited by the batcher.
func (b *Batcher) Put(key string, value []byte) {
	b.backend.Put(key, value)
}

// Delete removes the key from the backend cache. Deletes are not limited by the batcher.
func (b *Batcher) Delete(key string) {
	b.backend.Delete(key)
}

// IsHealthy reports whether the backend cache is healthy.
// Implements cache.HealthChecker.
func (b *Batcher) IsHealthy() bool {
	return cache.IsHealthy(b.backend)
}

// Name returns the name of the batcher including the backend name and its settings.
func (b *Batcher) Name() string {
	b.mu.Lock()
	parallelism, maxQueue := b.maxParallel, b.queue.maxSize
	b.mu.Unlock()
	return fmt.Sprintf("Batcher(cache=%s,parallelism=%d,max=%d)", b.backend.Name(), parallelism, maxQueue)
}

// Pending returns the number of lookups that are either in flight or queued.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlightLookups + b.queue.len()
}

// LastBatchSize returns the number of lookups sent to the backend by the most recent dispatch.
func (b *Batcher) LastBatchSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBatchSize
}

// Stats returns a snapshot of the batcher state.
func (b *Batcher) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		InFlight:        b.inFlight,
		InFlightLookups: b.inFlightLookups,
		Queued:          b.queue.len(),
		LastBatchSize:   b.lastBatchSize,
		DroppedGets:     b.droppedGets,
		QueuedGets:      b.queuedGets,
	}
}

// SetMaxParallelLookups changes the maximum number of parallel dispatches.
// It can be called only before the first lookup, otherwise ErrSettingsFrozen is returned.
// The only exception is a batcher configured with zero parallelism:
// raising it to a positive value is always allowed and immediately dispatches queued lookups.
func (b *Batcher) SetMaxParallelLookups(n int) error {
	if n < 0 {
		return fmt.Errorf("max parallel lookups should not be negative, got %d", n)
	}

	b.mu.Lock()
	if b.frozen && (b.maxParallel != 0 || n == 0) {
		b.mu.Unlock()
		return ErrSettingsFrozen
	}
	unblocked := b.frozen && b.maxParallel == 0
	b.maxParallel = n
	next := b.drainLocked()
	b.mu.Unlock()

	if unblocked {
		b.logger.Info("cache batcher unblocked", log.Int("max_parallel_lookups", n), log.Int("dispatched", len(next)))
	}
	b.dispatch(next)
	return nil
}

// SetMaxQueueSize changes the maximum number of queued lookups.
// It can be called only before the first lookup, otherwise ErrSettingsFrozen is returned.
func (b *Batcher) SetMaxQueueSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("max queue size should be positive, got %d", n)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrSettingsFrozen
	}
	b.queue.maxSize = n
	return nil
}

func (b *Batcher) complete(l *lookup, outcome cache.Outcome) {
	b.mu.Lock()
	if l.done {
		b.mu.Unlock()
		b.logger.Warn("backend completed cache lookup more than once, ignoring",
			log.Key(l.key), log.String("backend", b.backend.Name()))
		return
	}
	l.done = true
	l.batch.remaining--
	var next []*lookup
	if l.batch.remaining == 0 {
		b.inFlight--
		next = b.drainLocked()
	}
	b.mu.Unlock()

	if outcome.Err != nil {
		b.logger.Debug("backend failed to look up key, reporting miss",
			log.Key(l.key), log.Error(outcome.Err))
	}
	cache.ValidateAndReport(l.key, translateOutcome(outcome), l.callback)

	// The lookup stays pending until its callback returns, so Pending() == 0 means all callbacks are finished.
	b.mu.Lock()
	b.inFlightLookups--
	b.mu.Unlock()

	b.dispatch(next)
}

// drainLocked takes the whole queue as a new batch if a dispatch slot is free.
// The caller must dispatch the returned lookups after releasing the lock.
func (b *Batcher) drainLocked() []*lookup {
	if b.inFlight >= b.maxParallel || b.queue.len() == 0 {
		return nil
	}
	lookups := b.queue.popAll()
	b.startBatchLocked(lookups)
	return lookups
}

func (b *Batcher) startBatchLocked(lookups []*lookup) {
	bt := &batch{remaining: len(lookups)}
	for _, l := range lookups {
		l.batch = bt
	}
	b.inFlight++
	b.inFlightLookups += len(lookups)
	b.lastBatchSize = len(lookups)
	b.metrics.SetLastBatchSize(len(lookups))
}

func (b *Batcher) dispatch(lookups []*lookup) {
	switch len(lookups) {
	case 0:
		return
	case 1:
		b.backend.Get(lookups[0].key, lookups[0])
	default:
		reqs := make([]cache.Request, len(lookups))
		for i, l := range lookups {
			reqs[i] = cache.Request{Key: l.key, Callback: l}
		}
		b.backend.MultiGet(reqs)
	}
}

// translateOutcome reduces a backend outcome to a hit or a miss.
// Backend failures are reported as misses.
func translateOutcome(outcome cache.Outcome) cache.Outcome {
	if outcome.Err == nil && outcome.State == cache.StateAvailable {
		return cache.Available(outcome.Value)
	}
	return cache.NotFound()
}
