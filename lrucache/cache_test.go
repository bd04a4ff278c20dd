/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachebatcher/cache"
	"github.com/acronis/go-cachebatcher/config"
)

func TestCache(t *testing.T) {
	// Every entry is 10 bytes: 5 bytes of the key and 5 bytes of the value.
	fillCache := func(c *Cache, keys ...string) {
		for _, key := range keys {
			c.Put(key, []byte(key))
		}
	}

	tests := []struct {
		name        string
		maxSize     uint64
		fn          func(t *testing.T, c *Cache)
		wantMetrics testMetrics
	}{
		{
			name:    "attempt to get not existing keys",
			maxSize: 100,
			fn: func(t *testing.T, c *Cache) {
				for _, key := range []string{"key:1", "key:2"} {
					requireLookup(t, c, key, cache.NotFound())
				}
			},
			wantMetrics: testMetrics{Misses: 2},
		},
		{
			name:    "put entries and get them",
			maxSize: 100,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2", "key:3")
				for _, key := range []string{"key:1", "key:2", "key:3"} {
					requireLookup(t, c, key, cache.Available([]byte(key)))
				}
				require.EqualValues(t, 30, c.SizeBytes())
			},
			wantMetrics: testMetrics{Amount: 3, SizeBytes: 30, Hits: 3},
		},
		{
			name:    "put entries with evictions",
			maxSize: 25,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2", "key:3") // "key:1" will be evicted.
				requireLookup(t, c, "key:1", cache.NotFound())
				requireLookup(t, c, "key:2", cache.Available([]byte("key:2")))
				requireLookup(t, c, "key:3", cache.Available([]byte("key:3")))
				require.EqualValues(t, 1, c.NumEvictions())
			},
			wantMetrics: testMetrics{Amount: 2, SizeBytes: 20, Hits: 2, Misses: 1, Evictions: 1},
		},
		{
			name:    "lookup protects entry from eviction",
			maxSize: 25,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2")
				requireLookup(t, c, "key:1", cache.Available([]byte("key:1")))
				fillCache(c, "key:3") // "key:2" is the least recently used now.
				requireLookup(t, c, "key:2", cache.NotFound())
				requireLookup(t, c, "key:1", cache.Available([]byte("key:1")))
			},
			wantMetrics: testMetrics{Amount: 2, SizeBytes: 20, Hits: 2, Misses: 1, Evictions: 1},
		},
		{
			name:    "replace value",
			maxSize: 100,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1")
				c.Put("key:1", []byte("longer value"))
				requireLookup(t, c, "key:1", cache.Available([]byte("longer value")))
				require.EqualValues(t, 17, c.SizeBytes())
			},
			wantMetrics: testMetrics{Amount: 1, SizeBytes: 17, Hits: 1},
		},
		{
			name:    "too large value is not stored",
			maxSize: 20,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2")
				c.Put("key:2", bytes.Repeat([]byte("x"), 20))
				requireLookup(t, c, "key:2", cache.NotFound())
				requireLookup(t, c, "key:1", cache.Available([]byte("key:1")))
			},
			wantMetrics: testMetrics{Amount: 1, SizeBytes: 10, Hits: 1, Misses: 1},
		},
		{
			name:    "delete entries",
			maxSize: 100,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2")
				c.Delete("key:100")
				c.Delete("key:1")
				requireLookup(t, c, "key:1", cache.NotFound())
			},
			wantMetrics: testMetrics{Amount: 1, SizeBytes: 10, Misses: 1},
		},
		{
			name:    "clear",
			maxSize: 100,
			fn: func(t *testing.T, c *Cache) {
				fillCache(c, "key:1", "key:2")
				c.Clear()
				requireLookup(t, c, "key:1", cache.NotFound())
				require.Zero(t, c.NumElements())
			},
			wantMetrics: testMetrics{Misses: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewPrometheusMetrics()
			c, err := New(tt.maxSize, metrics)
			require.NoError(t, err)
			tt.fn(t, c)
			require.NoError(t, c.SanityCheck())
			assertMetrics(t, tt.wantMetrics, metrics)
			require.EqualValues(t, tt.wantMetrics.Hits, c.NumHits())
			require.EqualValues(t, tt.wantMetrics.Misses, c.NumMisses())
		})
	}
}

func TestCache_MultiGet(t *testing.T) {
	c, err := New(1024, nil)
	require.NoError(t, err)
	c.Put("a", []byte("1"))
	c.Put("c", []byte("3"))

	var got []cache.Outcome
	record := cache.CallbackFunc(func(o cache.Outcome) { got = append(got, o) })
	c.MultiGet([]cache.Request{{Key: "a", Callback: record}, {Key: "b", Callback: record}, {Key: "c", Callback: record}})

	require.Equal(t, []cache.Outcome{cache.Available([]byte("1")), cache.NotFound(), cache.Available([]byte("3"))}, got)
}

type rejectingCallback struct {
	outcome cache.Outcome
}

func (cb *rejectingCallback) Done(o cache.Outcome) { cb.outcome = o }

func (cb *rejectingCallback) ValidateCandidate(string, cache.KeyState) bool { return false }

func TestCache_CandidateValidation(t *testing.T) {
	c, err := New(1024, nil)
	require.NoError(t, err)
	c.Put("a", []byte("1"))

	cb := &rejectingCallback{outcome: cache.Dropped()}
	c.Get("a", cb)
	require.Equal(t, cache.NotFound(), cb.outcome)
}

func TestCache_Expiration(t *testing.T) {
	c, err := NewWithOpts(1024, nil, Options{DefaultTTL: time.Hour})
	require.NoError(t, err)

	c.Put("a", []byte("1"))
	c.PutWithTTL("b", []byte("2"), time.Millisecond)
	c.PutWithTTL("c", []byte("3"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	requireLookup(t, c, "b", cache.NotFound())
	c.removeExpired(time.Now())
	require.Equal(t, 1, c.NumElements())
	requireLookup(t, c, "a", cache.Available([]byte("1")))
	require.NoError(t, c.SanityCheck())
}

func TestCache_ManyEntries(t *testing.T) {
	c, err := New(1000, nil)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		key := "key:" + strconv.Itoa(i)
		c.Put(key, []byte(key))
		if i%7 == 0 {
			c.Delete("key:" + strconv.Itoa(i/2))
		}
		require.LessOrEqual(t, c.SizeBytes(), c.MaxSizeBytes())
	}
	require.NoError(t, c.SanityCheck())
	require.Positive(t, c.NumEvictions())
}

func TestCache_ValuesAreCopied(t *testing.T) {
	c, err := New(1000, nil)
	require.NoError(t, err)

	value := []byte("value")
	c.Put("a", value)
	value[0] = 'X'
	requireLookup(t, c, "a", cache.Available([]byte("value")))

	c.Get("a", cache.CallbackFunc(func(o cache.Outcome) { o.Value[0] = 'Y' }))
	c.MultiGet([]cache.Request{{Key: "a", Callback: cache.CallbackFunc(func(o cache.Outcome) { o.Value[1] = 'Z' })}})
	requireLookup(t, c, "a", cache.Available([]byte("value")))
}

func TestNew(t *testing.T) {
	_, err := New(0, nil)
	require.EqualError(t, err, "maxSize must be greater than 0")
	_, err = NewWithOpts(10, nil, Options{DefaultTTL: -time.Second})
	require.Error(t, err)

	cfg := NewConfig()
	require.NoError(t, config.NewDefaultLoader("").LoadDefaults(cfg))
	require.EqualValues(t, DefaultMaxSize, cfg.MaxSize)
	c, err := NewWithConfig(cfg, nil)
	require.NoError(t, err)
	require.EqualValues(t, DefaultMaxSize, c.MaxSizeBytes())
	require.Equal(t, "LRU", c.Name())
}

type testMetrics struct {
	Amount    int
	SizeBytes int
	Hits      int
	Misses    int
	Evictions int
}

func assertMetrics(t *testing.T, want testMetrics, pm *PrometheusMetrics) {
	t.Helper()
	assert.Equal(t, want.Amount, int(testutil.ToFloat64(pm.EntriesAmount.With(nil))))
	assert.Equal(t, want.SizeBytes, int(testutil.ToFloat64(pm.SizeBytes.With(nil))))
	assert.Equal(t, want.Hits, int(testutil.ToFloat64(pm.HitsTotal.With(nil))))
	assert.Equal(t, want.Misses, int(testutil.ToFloat64(pm.MissesTotal.With(nil))))
	assert.Equal(t, want.Evictions, int(testutil.ToFloat64(pm.EvictionsTotal.With(nil))))
}

func requireLookup(t *testing.T, c *Cache, key string, want cache.Outcome) {
	t.Helper()
	var got *cache.Outcome
	c.Get(key, cache.CallbackFunc(func(o cache.Outcome) { got = &o }))
	require.NotNil(t, got, "callback must be called synchronously")
	require.Equal(t, want, *got)
}
