/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

import (
	"fmt"

	"github.com/acronis/go-cachebatcher/config"
)

const cfgDefaultKeyPrefix = "cacheBatcher"

const (
	cfgKeyMaxParallelLookups = "maxParallelLookups"
	cfgKeyMaxQueueSize       = "maxQueueSize"
)

// Config represents a set of configuration parameters for the Batcher.
type Config struct {
	MaxParallelLookups int `mapstructure:"maxParallelLookups" yaml:"maxParallelLookups" json:"maxParallelLookups"`
	MaxQueueSize       int `mapstructure:"maxQueueSize" yaml:"maxQueueSize" json:"maxQueueSize"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MaxParallelLookups = DefaultMaxParallelLookups
	cfg.MaxQueueSize = DefaultMaxQueueSize
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the batcher in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxParallelLookups, DefaultMaxParallelLookups)
	dp.SetDefault(cfgKeyMaxQueueSize, DefaultMaxQueueSize)
}

// Set sets batcher configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxParallelLookups, err = dp.GetInt(cfgKeyMaxParallelLookups); err != nil {
		return err
	}
	if c.MaxParallelLookups < 1 {
		return dp.WrapKeyErr(cfgKeyMaxParallelLookups, fmt.Errorf("should be >= 1"))
	}
	if c.MaxQueueSize, err = dp.GetInt(cfgKeyMaxQueueSize); err != nil {
		return err
	}
	if c.MaxQueueSize < 1 {
		return dp.WrapKeyErr(cfgKeyMaxQueueSize, fmt.Errorf("should be >= 1"))
	}
	return nil
}
