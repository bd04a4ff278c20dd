/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package asynccache

import (
	"fmt"

	"github.com/acronis/go-cachebatcher/config"
)

const cfgDefaultKeyPrefix = "asyncCache"

const (
	cfgKeyWorkers      = "workers"
	cfgKeyMaxQueueSize = "maxQueueSize"
)

// Config represents a set of configuration parameters for the AsyncCache.
type Config struct {
	Workers      int `mapstructure:"workers" yaml:"workers" json:"workers"`
	MaxQueueSize int `mapstructure:"maxQueueSize" yaml:"maxQueueSize" json:"maxQueueSize"`

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

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyWorkers, DefaultWorkers)
	dp.SetDefault(cfgKeyMaxQueueSize, DefaultMaxQueueSize)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Workers, err = dp.GetInt(cfgKeyWorkers); err != nil {
		return err
	}
	if c.Workers < 1 {
		return dp.WrapKeyErr(cfgKeyWorkers, fmt.Errorf("should be >= 1"))
	}
	if c.MaxQueueSize, err = dp.GetInt(cfgKeyMaxQueueSize); err != nil {
		return err
	}
	if c.MaxQueueSize < 1 {
		return dp.WrapKeyErr(cfgKeyMaxQueueSize, fmt.Errorf("should be >= 1"))
	}
	return nil
}
