/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachebatcher/config"
	"github.com/acronis/go-cachebatcher/internal/ratelimit"
	"github.com/acronis/go-cachebatcher/log/logtest"
)

func loadTestConfig(t *testing.T, yamlData string) *AppConfig {
	t.Helper()
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader("")
	err := loader.LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML,
		cfg.Bench, cfg.Log, cfg.Batcher, cfg.AsyncCache, cfg.LRUCache, cfg.RedisCache, cfg.MetricsServer)
	require.NoError(t, err)
	return cfg
}

func TestRunBench_Memory(t *testing.T) {
	cfg := loadTestConfig(t, `
bench:
  requests: 2000
  concurrency: 8
  keys: 100
  latency: 100us
cacheBatcher:
  maxParallelLookups: 2
`)
	registry := prometheus.NewRegistry()
	logRecorder := logtest.NewRecorder()

	summary, err := runBench(context.Background(), cfg, registry, logRecorder)
	require.NoError(t, err)

	require.Equal(t, 2000, summary.Requests)
	require.Equal(t, 0, summary.Dropped)
	require.Equal(t, 2000, summary.Hits+summary.Misses)
	require.Positive(t, summary.Hits)
	require.Positive(t, summary.Misses)
	require.Zero(t, summary.Batcher.InFlight)
	require.Zero(t, summary.Batcher.InFlightLookups)
	require.Zero(t, summary.Batcher.Queued)

	_, found := logRecorder.FindEntry("benchmark finished")
	require.True(t, found)
	require.Equal(t, 1, testutil.CollectAndCount(registry, "cachebatcher_bench_cache_hits_total"))
}

func TestRunBench_Dropped(t *testing.T) {
	cfg := loadTestConfig(t, `
bench:
  requests: 500
  concurrency: 4
  keys: 10
  latency: 5ms
cacheBatcher:
  maxParallelLookups: 1
  maxQueueSize: 1
`)
	summary, err := runBench(context.Background(), cfg, prometheus.NewRegistry(), logtest.NewRecorder())
	require.NoError(t, err)
	require.Positive(t, summary.Dropped)
	require.Equal(t, 500, summary.Hits+summary.Misses+summary.Dropped)
}

func TestRunBench_RateLimited(t *testing.T) {
	for _, alg := range ratelimit.AvailableAlgorithms {
		t.Run(alg, func(t *testing.T) {
			cfg := loadTestConfig(t, `
bench:
  requests: 20
  concurrency: 2
  keys: 10
  latency: 0s
  rate: 1000/s
  rateAlgorithm: `+alg+`
`)
			summary, err := runBench(context.Background(), cfg, prometheus.NewRegistry(), logtest.NewRecorder())
			require.NoError(t, err)
			require.Equal(t, 20, summary.Hits+summary.Misses)
		})
	}
}

func TestRunBench_Canceled(t *testing.T) {
	cfg := loadTestConfig(t, `
bench:
  requests: 1000000
  concurrency: 2
  rate: 10/s
`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := runBench(ctx, cfg, prometheus.NewRegistry(), logtest.NewRecorder())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunBench_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadTestConfig(t, `
bench:
  backend: redis
  requests: 300
  concurrency: 4
  keys: 20
redisCache:
  address: `+mr.Addr()+`
  keyPrefix: "bench:"
cacheBatcher:
  maxParallelLookups: 4
`)
	summary, err := runBench(context.Background(), cfg, prometheus.NewRegistry(), logtest.NewRecorder())
	require.NoError(t, err)
	require.Equal(t, 300, summary.Hits+summary.Misses)
	require.Positive(t, summary.Hits)

	val, err := mr.Get("bench:key-0")
	require.NoError(t, err)
	require.Equal(t, "value-0", val)
	require.False(t, mr.Exists("bench:key-1"), "odd keys must not be seeded")
}

func TestRun(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log:
  level: error
bench:
  requests: 100
  concurrency: 2
  keys: 10
`), 0o600))

	var errOut bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--config", cfgPath, "--latency", "0s", "-n", "50"}, &errOut))

	err := run(context.Background(), []string{"--config", cfgPath, "--requests", "0"}, &errOut)
	require.EqualError(t, err, "--requests: should be positive")

	err = run(context.Background(), []string{"--config", cfgPath, "--backend", "memcached"}, &errOut)
	require.EqualError(t, err, `--backend: unknown backend "memcached"`)

	err = run(context.Background(), []string{"--config", cfgPath, "--rate", "fast"}, &errOut)
	require.ErrorContains(t, err, "incorrect format for rate")

	err = run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &errOut)
	require.ErrorContains(t, err, "load configuration")

	err = run(context.Background(), []string{"--help"}, &errOut)
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestApplyFlags(t *testing.T) {
	cfg := loadTestConfig(t, "")
	require.Equal(t, backendMemory, cfg.Bench.Backend)
	require.Equal(t, 100000, cfg.Bench.Requests)
	require.True(t, cfg.Bench.Rate.IsZero())

	flagSet, fv, err := parseFlags([]string{
		"--backend", "redis", "--concurrency", "3", "--keys", "7", "--rate", "500/s",
		"--rate-algorithm", "sliding-window", "--metrics-addr", "127.0.0.1:0",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, applyFlags(cfg, flagSet, fv))

	require.Equal(t, backendRedis, cfg.Bench.Backend)
	require.Equal(t, 100000, cfg.Bench.Requests)
	require.Equal(t, 3, cfg.Bench.Concurrency)
	require.Equal(t, 7, cfg.Bench.Keys)
	require.Equal(t, ratelimit.Rate{Count: 500, Duration: time.Second}, cfg.Bench.Rate)
	require.Equal(t, ratelimit.AlgorithmSlidingWindow, cfg.Bench.RateAlgorithm)
	require.True(t, cfg.MetricsServer.Enabled)
	require.Equal(t, "127.0.0.1:0", cfg.MetricsServer.Address)

	_, _, err = parseFlags([]string{"extra"}, &bytes.Buffer{})
	require.EqualError(t, err, "unexpected arguments: extra")
}

func TestBenchConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{name: "unknown backend", yamlData: "bench:\n  backend: disk\n", expectedErrMsg: "bench.backend: unknown value"},
		{name: "zero requests", yamlData: "bench:\n  requests: 0\n", expectedErrMsg: "bench.requests: should be positive"},
		{name: "bad rate", yamlData: "bench:\n  rate: 10/d\n", expectedErrMsg: "bench.rate: incorrect format for rate"},
		{name: "negative burst", yamlData: "bench:\n  rateBurst: -1\n", expectedErrMsg: "bench.rateBurst: should be >= 0"},
		{name: "negative latency", yamlData: "bench:\n  latency: -1s\n", expectedErrMsg: "bench.latency: should be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewBenchConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yamlData), config.DataTypeYAML, cfg)
			require.ErrorContains(t, err, tt.expectedErrMsg)
		})
	}
}
