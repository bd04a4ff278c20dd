/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachebatcher/config"
)

const cfgDefaultKeyPrefix = "lruCache"

const (
	cfgKeyMaxSize    = "maxSize"
	cfgKeyDefaultTTL = "defaultTTL"
)

// DefaultMaxSize is the default maximum size of the cache in bytes.
const DefaultMaxSize = 64 * 1024 * 1024

// Config represents a set of configuration parameters for the cache.
type Config struct {
	MaxSize    config.BytesCount `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	DefaultTTL time.Duration     `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxSize, DefaultMaxSize)
	dp.SetDefault(cfgKeyDefaultTTL, 0)
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxSize, err = dp.GetBytesCount(cfgKeyMaxSize); err != nil {
		return err
	}
	if c.MaxSize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxSize, fmt.Errorf("should be positive"))
	}
	if c.DefaultTTL, err = dp.GetDuration(cfgKeyDefaultTTL); err != nil {
		return err
	}
	if c.DefaultTTL < 0 {
		return dp.WrapKeyErr(cfgKeyDefaultTTL, fmt.Errorf("should be >= 0"))
	}
	return nil
}
