/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachebatcher/asynccache"
	"github.com/acronis/go-cachebatcher/cachebatcher"
	"github.com/acronis/go-cachebatcher/config"
	"github.com/acronis/go-cachebatcher/internal/metricsserver"
	"github.com/acronis/go-cachebatcher/internal/ratelimit"
	"github.com/acronis/go-cachebatcher/log"
	"github.com/acronis/go-cachebatcher/lrucache"
	"github.com/acronis/go-cachebatcher/rediscache"
)

const cfgDefaultKeyPrefix = "bench"

const (
	cfgKeyBackend       = "backend"
	cfgKeyRequests      = "requests"
	cfgKeyConcurrency   = "concurrency"
	cfgKeyKeys          = "keys"
	cfgKeyRate          = "rate"
	cfgKeyRateAlgorithm = "rateAlgorithm"
	cfgKeyRateBurst     = "rateBurst"
	cfgKeyLatency       = "latency"
)

// Supported backends.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// BenchConfig represents parameters of the generated load.
type BenchConfig struct {
	Backend       string
	Requests      int
	Concurrency   int
	Keys          int
	Rate          ratelimit.Rate
	RateAlgorithm ratelimit.Algorithm
	RateBurst     int
	Latency       time.Duration

	keyPrefix string
}

var _ config.Config = (*BenchConfig)(nil)
var _ config.KeyPrefixProvider = (*BenchConfig)(nil)

// NewBenchConfig creates a new instance of the BenchConfig.
func NewBenchConfig() *BenchConfig {
	return &BenchConfig{keyPrefix: cfgDefaultKeyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *BenchConfig) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the load in config.DataProvider.
func (c *BenchConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBackend, backendMemory)
	dp.SetDefault(cfgKeyRequests, 100000)
	dp.SetDefault(cfgKeyConcurrency, 16)
	dp.SetDefault(cfgKeyKeys, 1000)
	dp.SetDefault(cfgKeyRate, "")
	dp.SetDefault(cfgKeyRateAlgorithm, string(ratelimit.AlgorithmTokenBucket))
	dp.SetDefault(cfgKeyRateBurst, 0)
	dp.SetDefault(cfgKeyLatency, "1ms")
}

// Set sets load configuration values from config.DataProvider.
func (c *BenchConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Backend, err = dp.GetStringFromSet(cfgKeyBackend, []string{backendMemory, backendRedis}, false); err != nil {
		return err
	}
	if c.Requests, err = getPositiveInt(dp, cfgKeyRequests); err != nil {
		return err
	}
	if c.Concurrency, err = getPositiveInt(dp, cfgKeyConcurrency); err != nil {
		return err
	}
	if c.Keys, err = getPositiveInt(dp, cfgKeyKeys); err != nil {
		return err
	}

	rate, err := dp.GetString(cfgKeyRate)
	if err != nil {
		return err
	}
	if err = c.Rate.Set(rate); err != nil {
		return dp.WrapKeyErr(cfgKeyRate, err)
	}
	alg, err := dp.GetStringFromSet(cfgKeyRateAlgorithm, ratelimit.AvailableAlgorithms, false)
	if err != nil {
		return err
	}
	c.RateAlgorithm = ratelimit.Algorithm(alg)
	if c.RateBurst, err = dp.GetInt(cfgKeyRateBurst); err != nil {
		return err
	}
	if c.RateBurst < 0 {
		return dp.WrapKeyErr(cfgKeyRateBurst, fmt.Errorf("should be >= 0"))
	}

	if c.Latency, err = dp.GetDuration(cfgKeyLatency); err != nil {
		return err
	}
	if c.Latency < 0 {
		return dp.WrapKeyErr(cfgKeyLatency, fmt.Errorf("should be >= 0"))
	}
	return nil
}

func getPositiveInt(dp config.DataProvider, key string) (int, error) {
	n, err := dp.GetInt(key)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, dp.WrapKeyErr(key, fmt.Errorf("should be positive"))
	}
	return n, nil
}

// AppConfig aggregates configuration of all components the benchmark wires together.
type AppConfig struct {
	Bench         *BenchConfig
	Log           *log.Config
	Batcher       *cachebatcher.Config
	AsyncCache    *asynccache.Config
	LRUCache      *lrucache.Config
	RedisCache    *rediscache.Config
	MetricsServer *metricsserver.Config
}

// NewAppConfig creates a new instance of the AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Bench:         NewBenchConfig(),
		Log:           log.NewConfig(),
		Batcher:       cachebatcher.NewConfig(),
		AsyncCache:    asynccache.NewConfig(),
		LRUCache:      lrucache.NewConfig(),
		RedisCache:    rediscache.NewConfig(),
		MetricsServer: metricsserver.NewConfig(),
	}
}

// Load loads all configuration parameters from the file or, if path is empty, from defaults and env vars.
func (c *AppConfig) Load(path string) error {
	loader := config.NewDefaultLoader(envVarsPrefix)
	cfgs := []config.Config{c.Log, c.Batcher, c.AsyncCache, c.LRUCache, c.RedisCache, c.MetricsServer}
	if path == "" {
		return loader.LoadDefaults(c.Bench, cfgs...)
	}
	return loader.LoadFromFile(path, "", c.Bench, cfgs...)
}
