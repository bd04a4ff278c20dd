/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"strings"
	"time"
)

// prefixedProvider resolves every key relative to the prefix.
type prefixedProvider struct {
	dp     DataProvider
	prefix string
}

// WithKeyPrefix returns a DataProvider that prepends the prefix (and a dot) to every key.
func WithKeyPrefix(dp DataProvider, prefix string) DataProvider {
	if prefix == "" {
		return dp
	}
	return &prefixedProvider{dp: dp, prefix: prefix}
}

func (p *prefixedProvider) key(key string) string {
	return strings.Trim(p.prefix+"."+key, ".")
}

func (p *prefixedProvider) Set(key string, value interface{}) {
	p.dp.Set(p.key(key), value)
}

func (p *prefixedProvider) SetDefault(key string, value interface{}) {
	p.dp.SetDefault(p.key(key), value)
}

func (p *prefixedProvider) IsSet(key string) bool {
	return p.dp.IsSet(p.key(key))
}

func (p *prefixedProvider) GetBool(key string) (bool, error) {
	return p.dp.GetBool(p.key(key))
}

func (p *prefixedProvider) GetInt(key string) (int, error) {
	return p.dp.GetInt(p.key(key))
}

func (p *prefixedProvider) GetString(key string) (string, error) {
	return p.dp.GetString(p.key(key))
}

func (p *prefixedProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	return p.dp.GetStringFromSet(p.key(key), set, ignoreCase)
}

func (p *prefixedProvider) GetDuration(key string) (time.Duration, error) {
	return p.dp.GetDuration(p.key(key))
}

func (p *prefixedProvider) GetBytesCount(key string) (BytesCount, error) {
	return p.dp.GetBytesCount(p.key(key))
}

func (p *prefixedProvider) WrapKeyErr(key string, err error) error {
	return p.dp.WrapKeyErr(p.key(key), err)
}
