/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/log"
)

// Default values for the cache options.
const (
	DefaultTimeout              = time.Second
	DefaultMaxRetries           = 2
	DefaultRetryInitialInterval = 10 * time.Millisecond
)

// ErrClosed is reported for operations issued after Close.
var ErrClosed = errors.New("redis cache is closed")

// Opts represents options for the Cache.
type Opts struct {
	// KeyPrefix is prepended to every key.
	KeyPrefix string

	// TTL is the expiration time of stored values. Zero means no expiration.
	TTL time.Duration

	// Timeout limits every operation including retries.
	// If zero, DefaultTimeout is used.
	Timeout time.Duration

	// RetryPolicy defines how failed commands are retried.
	// If nil, exponential backoff with MaxRetries retries is used.
	RetryPolicy RetryPolicy

	// MaxRetries is used when RetryPolicy is not specified.
	// If zero, DefaultMaxRetries is used. Negative value disables retries.
	MaxRetries int

	// Logger is used for reporting failed commands. It can be nil.
	Logger log.FieldLogger
}

// Cache is a cache.Cache storing values in Redis.
type Cache struct {
	client      redis.UniversalClient
	ownsClient  bool
	keyPrefix   string
	ttl         time.Duration
	timeout     time.Duration
	retryPolicy RetryPolicy
	logger      log.FieldLogger

	mu          sync.Mutex
	closed      bool
	wg          sync.WaitGroup
	outstanding atomic.Int64
	healthy     atomic.Bool
	pinging     atomic.Bool
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.HealthChecker = (*Cache)(nil)
)

// New creates a new Cache on top of the Redis client.
// The client is not closed by Close.
func New(client redis.UniversalClient, opts Opts) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client must be specified")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("TTL should not be negative")
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout should not be negative")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryPolicy == nil {
		maxRetries := opts.MaxRetries
		if maxRetries == 0 {
			maxRetries = DefaultMaxRetries
		}
		opts.RetryPolicy = NewExponentialRetryPolicy(DefaultRetryInitialInterval, maxRetries)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	c := &Cache{
		client:      client,
		keyPrefix:   opts.KeyPrefix,
		ttl:         opts.TTL,
		timeout:     opts.Timeout,
		retryPolicy: opts.RetryPolicy,
		logger:      opts.Logger,
	}
	c.healthy.Store(true)
	return c, nil
}

// NewWithConfig creates a new Redis client and a Cache on top of it from the loaded configuration.
// The client is closed by Close.
func NewWithConfig(cfg *Config, logger log.FieldLogger) (*Cache, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Address},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}
	c, err := New(client, Opts{
		KeyPrefix:  cfg.RedisKeyPrefix,
		TTL:        cfg.TTL,
		Timeout:    cfg.Timeout,
		MaxRetries: maxRetries,
		Logger:     logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	c.ownsClient = true
	return c, nil
}

// Name implements cache.Cache.
func (c *Cache) Name() string {
	return "Redis"
}

// Get looks up the key with the GET command on a separate goroutine.
func (c *Cache) Get(key string, cb cache.Callback) {
	if !c.start() {
		cb.Done(cache.Failed(ErrClosed))
		return
	}
	go func() {
		defer c.finish()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		var val []byte
		err := c.do(ctx, "GET", func(ctx context.Context) (err error) {
			val, err = c.client.Get(ctx, c.keyPrefix+key).Bytes()
			return err
		})
		switch {
		case err == nil:
			cache.ValidateAndReport(key, cache.Available(val), cb)
		case errors.Is(err, redis.Nil):
			cb.Done(cache.NotFound())
		default:
			cb.Done(cache.Failed(err))
		}
	}()
}

// MultiGet looks up all keys with a single MGET command on a separate goroutine.
func (c *Cache) MultiGet(reqs []cache.Request) {
	if len(reqs) == 0 {
		return
	}
	if !c.start() {
		for _, req := range reqs {
			req.Callback.Done(cache.Failed(ErrClosed))
		}
		return
	}
	go func() {
		defer c.finish()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		keys := make([]string, len(reqs))
		for i, req := range reqs {
			keys[i] = c.keyPrefix + req.Key
		}
		var vals []interface{}
		err := c.do(ctx, "MGET", func(ctx context.Context) (err error) {
			vals, err = c.client.MGet(ctx, keys...).Result()
			return err
		})
		if err == nil && len(vals) != len(reqs) {
			err = fmt.Errorf("MGET returned %d values for %d keys", len(vals), len(reqs))
		}
		if err != nil {
			for _, req := range reqs {
				req.Callback.Done(cache.Failed(err))
			}
			return
		}
		for i, req := range reqs {
			switch v := vals[i].(type) {
			case string:
				cache.ValidateAndReport(req.Key, cache.Available([]byte(v)), req.Callback)
			default:
				req.Callback.Done(cache.NotFound())
			}
		}
	}()
}

// Put stores the value with the SET command on a separate goroutine.
func (c *Cache) Put(key string, value []byte) {
	c.mutate("SET", func(ctx context.Context) error {
		return c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err()
	})
}

// Delete removes the key with the DEL command on a separate goroutine.
func (c *Cache) Delete(key string) {
	c.mutate("DEL", func(ctx context.Context) error {
		return c.client.Del(ctx, c.keyPrefix+key).Err()
	})
}

// OutstandingOperations returns the number of commands that have been issued but not yet finished.
func (c *Cache) OutstandingOperations() int {
	return int(c.outstanding.Load())
}

// IsHealthy reports whether the last command reached the server.
// While the server is considered sick, every call schedules a PING (at most one at a time)
// that makes the cache healthy again once the server responds.
// Implements cache.HealthChecker.
func (c *Cache) IsHealthy() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	if c.healthy.Load() {
		return true
	}
	c.recheckHealth()
	return false
}

// Ping checks the server with the PING command and updates the health state.
func (c *Cache) Ping(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	c.healthy.Store(err == nil)
	return err
}

func (c *Cache) recheckHealth() {
	if !c.pinging.CompareAndSwap(false, true) {
		return
	}
	if !c.start() {
		c.pinging.Store(false)
		return
	}
	go func() {
		defer c.finish()
		defer c.pinging.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			c.logger.Debug("redis server is still unhealthy", log.Error(err))
			return
		}
		c.logger.Info("redis server is healthy again")
	}()
}

// Close waits for the outstanding operations.
// The Redis client is closed only if it was created by NewWithConfig.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

func (c *Cache) start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	c.outstanding.Inc()
	return true
}

func (c *Cache) finish() {
	c.outstanding.Dec()
	c.wg.Done()
}

func (c *Cache) mutate(cmd string, fn func(ctx context.Context) error) {
	if !c.start() {
		c.logger.Warn("redis command issued after close, ignoring", log.String("command", cmd))
		return
	}
	go func() {
		defer c.finish()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_ = c.do(ctx, cmd, fn)
	}()
}

func (c *Cache) do(ctx context.Context, cmd string, fn func(ctx context.Context) error) error {
	notify := func(err error, delay time.Duration) {
		c.logger.Debug("redis command failed, retrying",
			log.String("command", cmd), log.Duration("delay", delay), log.Error(err))
	}
	err := doWithRetry(ctx, c.retryPolicy, notify, fn)
	if err != nil && !errors.Is(err, redis.Nil) {
		c.healthy.Store(false)
		c.logger.Warn("redis command failed", log.String("command", cmd), log.Error(err))
		return err
	}
	c.healthy.Store(true)
	return err
}
