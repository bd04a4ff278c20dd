/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperSource is a Source backed by viper.
// Values are converted with cast, so "8" and 8 are both valid integers.
type ViperSource struct {
	v *viper.Viper
}

var _ Source = (*ViperSource)(nil)

// NewViperSource creates a new ViperSource.
// If envVarsPrefix is not empty, every key may be overridden by an environment variable,
// e.g. "asyncCache.workers" by PREFIX_ASYNCCACHE_WORKERS.
func NewViperSource(envVarsPrefix string) *ViperSource {
	v := viper.New()
	if envVarsPrefix != "" {
		v.SetEnvPrefix(envVarsPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return &ViperSource{v: v}
}

// ReadFile reads configuration data from the file.
func (s *ViperSource) ReadFile(path string, dataType DataType) error {
	s.v.SetConfigType(string(dataType))
	s.v.SetConfigFile(path)
	return s.v.ReadInConfig()
}

// Read reads configuration data from the reader.
func (s *ViperSource) Read(reader io.Reader, dataType DataType) error {
	s.v.SetConfigType(string(dataType))
	return s.v.ReadConfig(reader)
}

// Set overrides the value of the key.
func (s *ViperSource) Set(key string, value interface{}) {
	s.v.Set(key, value)
}

// SetDefault sets the value used when neither the data nor the environment has the key.
func (s *ViperSource) SetDefault(key string, value interface{}) {
	s.v.SetDefault(key, value)
}

// IsSet reports whether the key has a value (including a default one).
func (s *ViperSource) IsSet(key string) bool {
	return s.v.IsSet(key)
}

func (s *ViperSource) GetBool(key string) (bool, error) {
	return getAs(s, key, cast.ToBoolE)
}

func (s *ViperSource) GetInt(key string) (int, error) {
	return getAs(s, key, cast.ToIntE)
}

func (s *ViperSource) GetString(key string) (string, error) {
	return getAs(s, key, cast.ToStringE)
}

// GetStringFromSet returns the string value of the key if it is one of the set.
func (s *ViperSource) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	val, err := s.GetString(key)
	if err != nil {
		return "", err
	}
	for _, allowed := range set {
		if val == allowed || (ignoreCase && strings.EqualFold(val, allowed)) {
			return val, nil
		}
	}
	return "", WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", val, set))
}

// GetDuration returns the duration value of the key. Missing key gives zero.
func (s *ViperSource) GetDuration(key string) (time.Duration, error) {
	if s.v.Get(key) == nil {
		return 0, nil
	}
	return getAs(s, key, cast.ToDurationE)
}

// GetBytesCount returns the size value of the key.
// Both numbers and human-readable strings ("64M", "1Gi") are accepted. Missing key gives zero.
func (s *ViperSource) GetBytesCount(key string) (BytesCount, error) {
	return getAs(s, key, func(val interface{}) (BytesCount, error) {
		switch v := val.(type) {
		case nil:
			return 0, nil
		case BytesCount:
			return v, nil
		case string:
			return ParseBytesCount(v)
		case float32, float64:
			return BytesCount(cast.ToUint64(v)), nil
		}
		n, err := cast.ToInt64E(val)
		if err != nil {
			return 0, fmt.Errorf("unsupported type for bytes count: %T", val)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", n)
		}
		return BytesCount(n), nil
	})
}

// WrapKeyErr wraps error adding the key where this error occurs.
func (s *ViperSource) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(key, err)
}

func getAs[T any](s *ViperSource, key string, convert func(interface{}) (T, error)) (T, error) {
	val, err := convert(s.v.Get(key))
	if err != nil {
		var zero T
		return zero, WrapKeyErr(key, err)
	}
	return val, nil
}
