/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rediscache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/cachebatcher"
	"github.com/acronis/go-cachebatcher/cachetest"
	"github.com/acronis/go-cachebatcher/config"
	"github.com/acronis/go-cachebatcher/log"
	"github.com/acronis/go-cachebatcher/log/logtest"
)

const waitTimeout = 5 * time.Second

func setupTestRedis(t *testing.T, opts Opts) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c, err := New(client, opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	return mr, c
}

func waitOutcome(t *testing.T, cb *cachetest.SyncCallback) cache.Outcome {
	t.Helper()
	outcome, ok := cb.WaitTimeout(waitTimeout)
	require.True(t, ok, "callback was not called")
	return outcome
}

func TestCache_Get(t *testing.T) {
	mr, c := setupTestRedis(t, Opts{KeyPrefix: "app:"})
	require.NoError(t, mr.Set("app:k1", "v1"))
	require.NoError(t, mr.Set("k2", "v2"))

	cb1, cb2 := cachetest.NewSyncCallback(), cachetest.NewSyncCallback()
	c.Get("k1", cb1)
	c.Get("k2", cb2)

	require.Equal(t, cache.Available([]byte("v1")), waitOutcome(t, cb1))
	require.Equal(t, cache.NotFound(), waitOutcome(t, cb2), "key prefix must be applied")
	require.Equal(t, "Redis", c.Name())
}

func TestCache_MultiGet(t *testing.T) {
	mr, c := setupTestRedis(t, Opts{KeyPrefix: "app:"})
	require.NoError(t, mr.Set("app:k1", "v1"))
	require.NoError(t, mr.Set("app:k3", "v3"))

	cbs := []*cachetest.SyncCallback{cachetest.NewSyncCallback(), cachetest.NewSyncCallback(), cachetest.NewSyncCallback()}
	c.MultiGet([]cache.Request{{Key: "k1", Callback: cbs[0]}, {Key: "k2", Callback: cbs[1]}, {Key: "k3", Callback: cbs[2]}})

	require.Equal(t, cache.Available([]byte("v1")), waitOutcome(t, cbs[0]))
	require.Equal(t, cache.NotFound(), waitOutcome(t, cbs[1]))
	require.Equal(t, cache.Available([]byte("v3")), waitOutcome(t, cbs[2]))
}

func TestCache_PutAndDelete(t *testing.T) {
	mr, c := setupTestRedis(t, Opts{KeyPrefix: "app:", TTL: time.Minute})

	c.Put("k1", []byte("v1"))
	require.Eventually(t, func() bool {
		v, err := mr.Get("app:k1")
		return err == nil && v == "v1"
	}, waitTimeout, time.Millisecond)
	require.Equal(t, time.Minute, mr.TTL("app:k1"))

	cb := cachetest.NewSyncCallback()
	c.Get("k1", cb)
	require.Equal(t, cache.Available([]byte("v1")), waitOutcome(t, cb))

	c.Delete("k1")
	require.Eventually(t, func() bool { return !mr.Exists("app:k1") }, waitTimeout, time.Millisecond)
	require.Eventually(t, func() bool { return c.OutstandingOperations() == 0 }, waitTimeout, time.Millisecond)
}

func TestCache_Failure(t *testing.T) {
	logs := logtest.NewRecorder()
	mr, c := setupTestRedis(t, Opts{
		RetryPolicy: RetryPolicyFunc(func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
		}),
		Logger: logs,
	})
	mr.SetError("ERR simulated failure")

	cb := cachetest.NewSyncCallback()
	c.Get("k1", cb)
	outcome := waitOutcome(t, cb)
	require.False(t, outcome.Found())
	require.ErrorContains(t, outcome.Err, "simulated failure")

	require.Len(t, logs.Filter(func(e logtest.Entry) bool {
		return e.Text == "redis command failed, retrying"
	}), 2)
	entry, found := logs.FindEntry("redis command failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
}

func TestCache_Health(t *testing.T) {
	mr, c := setupTestRedis(t, Opts{MaxRetries: -1})
	require.True(t, c.IsHealthy())

	mr.SetError("ERR server is sick")
	c.Put("k1", []byte("v1"))
	require.Eventually(t, func() bool { return !c.IsHealthy() }, waitTimeout, time.Millisecond)
	require.Error(t, c.Ping(context.Background()))
	require.False(t, c.IsHealthy())

	// Recovery is detected by the background PING scheduled by IsHealthy.
	mr.SetError("")
	require.Eventually(t, c.IsHealthy, waitTimeout, time.Millisecond)

	mr.SetError("ERR server is sick")
	require.Error(t, c.Ping(context.Background()))
	mr.SetError("")
	require.NoError(t, c.Ping(context.Background()))
	require.True(t, c.IsHealthy())
	require.Eventually(t, func() bool { return c.OutstandingOperations() == 0 }, waitTimeout, time.Millisecond)
}

func TestCache_MissKeepsHealthy(t *testing.T) {
	_, c := setupTestRedis(t, Opts{})
	cb := cachetest.NewSyncCallback()
	c.Get("absent", cb)
	require.Equal(t, cache.NotFound(), waitOutcome(t, cb))
	require.True(t, c.IsHealthy())
}

func TestCache_Closed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	c, err := New(client, Opts{})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.False(t, c.IsHealthy())

	cb := cachetest.NewSyncCallback()
	c.Get("k1", cb)
	require.True(t, cb.IsDone())
	require.ErrorIs(t, cb.Outcome().Err, ErrClosed)

	cbs := []*cachetest.SyncCallback{cachetest.NewSyncCallback()}
	c.MultiGet([]cache.Request{{Key: "k1", Callback: cbs[0]}})
	require.ErrorIs(t, cbs[0].Outcome().Err, ErrClosed)

	require.NoError(t, client.Ping(context.Background()).Err(), "client must stay open")
}

func TestCache_BehindBatcher(t *testing.T) {
	mr, c := setupTestRedis(t, Opts{})
	for _, k := range []string{"n0", "n1", "n2"} {
		require.NoError(t, mr.Set(k, "value:"+k))
	}

	b, err := cachebatcher.New(c, cachebatcher.Opts{MaxParallelLookups: 1, MaxQueueSize: 10})
	require.NoError(t, err)

	cb0 := cachetest.NewSyncCallback()
	b.Get("n0", cb0)
	cbs := []*cachetest.SyncCallback{cachetest.NewSyncCallback(), cachetest.NewSyncCallback(), cachetest.NewSyncCallback()}
	for i, k := range []string{"n1", "missing", "n2"} {
		b.Get(k, cbs[i])
	}

	require.Equal(t, cache.Available([]byte("value:n0")), waitOutcome(t, cb0))
	for i, cb := range cbs {
		outcome := waitOutcome(t, cb)
		if i == 1 {
			require.Equal(t, cache.NotFound(), outcome)
			continue
		}
		require.True(t, outcome.Found())
	}
	require.LessOrEqual(t, b.LastBatchSize(), 3)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, cachebatcher.WaitForIdle(ctx, b, time.Millisecond))
}

func TestDoWithRetry(t *testing.T) {
	policy := RetryPolicyFunc(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	})

	attempts := 0
	err := doWithRetry(context.Background(), policy, nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	attempts = 0
	err = doWithRetry(context.Background(), policy, nil, func(context.Context) error {
		attempts++
		return redis.Nil
	})
	require.ErrorIs(t, err, redis.Nil)
	require.Equal(t, 1, attempts, "missing key must not be retried")

	attempts = 0
	err = doWithRetry(context.Background(), NewExponentialRetryPolicy(time.Millisecond, 0), nil, func(context.Context) error {
		attempts++
		return errors.New("connection reset")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestConfig(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, config.NewDefaultLoader("").LoadDefaults(cfg))
	require.Equal(t, DefaultAddress, cfg.Address)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultMaxRetries, cfg.MaxRetries)

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("app:k1", "v1"))
	cfg = NewConfig()
	cfgData := "redisCache:\n  address: " + mr.Addr() + "\n  keyPrefix: \"app:\"\n  ttl: 1h\n  timeout: 2s\n"
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg))
	require.Equal(t, time.Hour, cfg.TTL)

	c, err := NewWithConfig(cfg, nil)
	require.NoError(t, err)
	cb := cachetest.NewSyncCallback()
	c.Get("k1", cb)
	require.Equal(t, cache.Available([]byte("v1")), waitOutcome(t, cb))
	require.NoError(t, c.Close())

	cfg = NewConfig()
	err = config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString("redisCache:\n  timeout: 0s\n"), config.DataTypeYAML, cfg)
	require.EqualError(t, err, "redisCache.timeout: should be positive")
}
