/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rediscache

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachebatcher/config"
)

const cfgDefaultKeyPrefix = "redisCache"

const (
	cfgKeyAddress    = "address"
	cfgKeyPassword   = "password"
	cfgKeyDB         = "db"
	cfgKeyKeyPrefix  = "keyPrefix"
	cfgKeyTTL        = "ttl"
	cfgKeyTimeout    = "timeout"
	cfgKeyMaxRetries = "maxRetries"
)

// DefaultAddress is the default address of the Redis server.
const DefaultAddress = "localhost:6379"

// Config represents a set of configuration parameters for the Redis cache.
type Config struct {
	Address        string        `mapstructure:"address" yaml:"address" json:"address"`
	Password       string        `mapstructure:"password" yaml:"password" json:"password"`
	DB             int           `mapstructure:"db" yaml:"db" json:"db"`
	RedisKeyPrefix string        `mapstructure:"keyPrefix" yaml:"keyPrefix" json:"keyPrefix"`
	TTL            time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	MaxRetries     int           `mapstructure:"maxRetries" yaml:"maxRetries" json:"maxRetries"`

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
	dp.SetDefault(cfgKeyAddress, DefaultAddress)
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	dp.SetDefault(cfgKeyMaxRetries, DefaultMaxRetries)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	if c.Password, err = dp.GetString(cfgKeyPassword); err != nil {
		return err
	}
	if c.DB, err = dp.GetInt(cfgKeyDB); err != nil {
		return err
	}
	if c.DB < 0 {
		return dp.WrapKeyErr(cfgKeyDB, fmt.Errorf("should be >= 0"))
	}
	if c.RedisKeyPrefix, err = dp.GetString(cfgKeyKeyPrefix); err != nil {
		return err
	}
	if c.TTL, err = dp.GetDuration(cfgKeyTTL); err != nil {
		return err
	}
	if c.TTL < 0 {
		return dp.WrapKeyErr(cfgKeyTTL, fmt.Errorf("should be >= 0"))
	}
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("should be positive"))
	}
	if c.MaxRetries, err = dp.GetInt(cfgKeyMaxRetries); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return dp.WrapKeyErr(cfgKeyMaxRetries, fmt.Errorf("should be >= 0"))
	}
	return nil
}
