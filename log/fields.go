/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import "github.com/ssgreg/logf"

// Field is a key-value pair attached to a log entry.
type Field = logf.Field

// Field constructors.
var (
	Error    = logf.Error
	String   = logf.String
	Int      = logf.Int
	Int64    = logf.Int64
	Float64  = logf.Float64
	Bool     = logf.Bool
	Duration = logf.Duration
)

// Key returns a field with the looked up (or stored) cache key.
func Key(key string) Field {
	return logf.String("key", key)
}

// CacheName returns a field with the name of the cache, e.g. "Async(cache=LRU)".
func CacheName(name string) Field {
	return logf.String("cache", name)
}
