/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Config is implemented by the configuration of every component that may be used by Loader.
// SetProviderDefaults is called for all configs before Set, so a config may rely on the defaults of another one.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by configs whose keys live under a common prefix (e.g. "asyncCache").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataTypeFromPath detects the data type by the file extension (.yaml, .yml or .json).
func DataTypeFromPath(path string) (DataType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	}
	return "", fmt.Errorf("cannot detect configuration data type of file %q, supported extensions are .yaml, .yml and .json", path)
}

// DataProvider gives typed access to configuration values.
// Every getter error is already wrapped with the key.
type DataProvider interface {
	Set(key string, value interface{})
	SetDefault(key string, value interface{})
	IsSet(key string) bool

	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetDuration(key string) (time.Duration, error)
	GetBytesCount(key string) (BytesCount, error)

	// WrapKeyErr prepends the full key to err, so validation errors look like the getter ones.
	WrapKeyErr(key string, err error) error
}

// Source is a DataProvider that reads its values from YAML/JSON data.
type Source interface {
	DataProvider
	ReadFile(path string, dataType DataType) error
	Read(reader io.Reader, dataType DataType) error
}

// WrapKeyErr wraps error adding the key where this error occurs.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
