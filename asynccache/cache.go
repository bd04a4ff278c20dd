/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package asynccache

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/log"
)

// Default values for the AsyncCache options.
const (
	DefaultWorkers      = 2
	DefaultMaxQueueSize = 2000
)

// Opts represents options for the AsyncCache.
type Opts struct {
	// Workers is the number of goroutines executing operations against the backend.
	// If zero, DefaultWorkers is used.
	Workers int

	// MaxQueueSize is the maximum number of queued (not yet started) operations.
	// When it's exceeded, the oldest queued operation is retired: its lookups are completed
	// as misses and a mutation is discarded.
	// If zero, DefaultMaxQueueSize is used.
	MaxQueueSize int

	// Logger is used for reporting canceled and retired operations. It can be nil.
	Logger log.FieldLogger
}

type opKind int

const (
	opGet opKind = iota
	opMultiGet
	opPut
	opDelete
)

type operation struct {
	kind  opKind
	key   string
	value []byte
	cb    cache.Callback
	reqs  []cache.Request
}

// cancel completes the lookups of the operation as misses. Mutations are just forgotten.
func (op *operation) cancel() {
	switch op.kind {
	case opGet:
		op.cb.Done(cache.NotFound())
	case opMultiGet:
		for _, req := range op.reqs {
			req.Callback.Done(cache.NotFound())
		}
	}
}

// AsyncCache executes operations against the backend on a pool of worker goroutines.
// Operations are not queued while the backend reports itself unhealthy (see cache.HealthChecker),
// and queued operations are skipped if the backend became unhealthy before they started.
type AsyncCache struct {
	backend      cache.Cache
	logger       log.FieldLogger
	maxQueueSize int

	outstanding atomic.Int64
	retired     atomic.Int64

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*operation
	stopped bool
	closed  bool

	wg sync.WaitGroup
}

var _ cache.Cache = (*AsyncCache)(nil)

// New creates a new AsyncCache with the default queue size and starts its workers.
// Close must be called to stop them.
func New(backend cache.Cache, workers int, logger log.FieldLogger) (*AsyncCache, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("number of workers should be positive, got %d", workers)
	}
	return NewWithOpts(backend, Opts{Workers: workers, Logger: logger})
}

// NewWithOpts creates a new AsyncCache with the given options and starts its workers.
// Close must be called to stop them.
func NewWithOpts(backend cache.Cache, opts Opts) (*AsyncCache, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cache must be specified")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("number of workers should not be negative, got %d", opts.Workers)
	}
	if opts.MaxQueueSize < 0 {
		return nil, fmt.Errorf("max queue size should not be negative, got %d", opts.MaxQueueSize)
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxQueueSize == 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	c := &AsyncCache{backend: backend, logger: opts.Logger, maxQueueSize: opts.MaxQueueSize}
	c.cond = sync.NewCond(&c.mu)
	c.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go c.work()
	}
	return c, nil
}

// NewWithConfig creates a new AsyncCache with the settings from the loaded configuration.
func NewWithConfig(backend cache.Cache, cfg *Config, logger log.FieldLogger) (*AsyncCache, error) {
	return NewWithOpts(backend, Opts{Workers: cfg.Workers, MaxQueueSize: cfg.MaxQueueSize, Logger: logger})
}

// Name implements cache.Cache.
func (c *AsyncCache) Name() string {
	return cache.FormatName("Async", c.backend)
}

// Get queues the lookup. The callback is invoked on a worker goroutine,
// or immediately with a miss if the cache has been stopped or the backend is unhealthy.
func (c *AsyncCache) Get(key string, cb cache.Callback) {
	if !c.enqueue(&operation{kind: opGet, key: key, cb: cb}) {
		cb.Done(cache.NotFound())
	}
}

// MultiGet queues the lookups as a single backend MultiGet.
func (c *AsyncCache) MultiGet(reqs []cache.Request) {
	op := &operation{kind: opMultiGet, reqs: reqs}
	if !c.enqueue(op) {
		op.cancel()
	}
}

// Put queues storing the value.
func (c *AsyncCache) Put(key string, value []byte) {
	c.enqueue(&operation{kind: opPut, key: key, value: value})
}

// Delete queues removal of the key.
func (c *AsyncCache) Delete(key string) {
	c.enqueue(&operation{kind: opDelete, key: key})
}

// OutstandingOperations returns the number of queued and running operations.
func (c *AsyncCache) OutstandingOperations() int {
	return int(c.outstanding.Load())
}

// RetiredOperations returns the total number of queued operations pushed out by newer ones
// because the queue was full.
func (c *AsyncCache) RetiredOperations() int {
	return int(c.retired.Load())
}

// IsHealthy reports whether the cache accepts operations:
// it has not been stopped and the backend is healthy.
// Implements cache.HealthChecker.
func (c *AsyncCache) IsHealthy() bool {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	return !stopped && cache.IsHealthy(c.backend)
}

// CancelPendingOperations removes all queued (not yet started) operations.
// Their lookups are completed as misses on the calling goroutine.
func (c *AsyncCache) CancelPendingOperations() int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, op := range pending {
		op.cancel()
		c.outstanding.Dec()
	}
	if len(pending) > 0 {
		c.logger.Info("pending cache operations canceled",
			log.Int("canceled", len(pending)), log.CacheName(c.Name()))
	}
	return len(pending)
}

// StopCacheActivity makes the cache unhealthy and cancels pending operations.
// Subsequent lookups are completed immediately as misses, mutations are ignored.
func (c *AsyncCache) StopCacheActivity() {
	c.mu.Lock()
	wasStopped := c.stopped
	c.stopped = true
	c.mu.Unlock()
	if !wasStopped {
		c.logger.Warn("cache activity stopped", log.CacheName(c.Name()))
	}
	c.CancelPendingOperations()
}

// Close stops the cache and waits for the running operations to finish.
func (c *AsyncCache) Close() {
	c.StopCacheActivity()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
	c.wg.Wait()
}

// enqueue queues the operation unless the cache is stopped or the backend is unhealthy.
// If the queue is full, the oldest queued operation is retired.
func (c *AsyncCache) enqueue(op *operation) bool {
	if !cache.IsHealthy(c.backend) {
		return false
	}
	c.mu.Lock()
	if c.stopped || c.closed {
		c.mu.Unlock()
		return false
	}
	var retired *operation
	if len(c.pending) >= c.maxQueueSize {
		retired = c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
	}
	c.pending = append(c.pending, op)
	c.outstanding.Inc()
	c.mu.Unlock()
	c.cond.Signal()

	if retired != nil {
		retired.cancel()
		c.outstanding.Dec()
		c.retired.Inc()
		c.logger.Debug("queued cache operation retired, too many pending operations",
			log.CacheName(c.Name()), log.Int("max_queue_size", c.maxQueueSize))
	}
	return true
}

func (c *AsyncCache) next() (*operation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.pending) == 0 {
		return nil, false
	}
	op := c.pending[0]
	c.pending[0] = nil
	c.pending = c.pending[1:]
	return op, true
}

func (c *AsyncCache) work() {
	defer c.wg.Done()
	for {
		op, ok := c.next()
		if !ok {
			return
		}
		c.run(op)
		c.outstanding.Dec()
	}
}

func (c *AsyncCache) run(op *operation) {
	if !cache.IsHealthy(c.backend) {
		op.cancel()
		return
	}
	switch op.kind {
	case opGet:
		c.backend.Get(op.key, op.cb)
	case opMultiGet:
		c.backend.MultiGet(op.reqs)
	case opPut:
		c.backend.Put(op.key, op.value)
	case opDelete:
		c.backend.Delete(op.key)
	}
}
