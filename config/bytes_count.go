/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// BytesCount is a size in bytes, e.g. the capacity of an in-memory cache.
type BytesCount uint64

// ParseBytesCount parses a human-readable size ("512K", "64M", "1Gi").
// Kubernetes-style power-of-two suffixes are accepted. Empty string gives zero.
func ParseBytesCount(s string) (BytesCount, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, nil
	}
	if len(v) > 2 && strings.HasSuffix(v, "i") && strings.ContainsAny(v[len(v)-2:len(v)-1], "KMGTPE") {
		v = v[:len(v)-1]
	}
	n, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return BytesCount(n), nil
}

// String returns the human-readable representation, e.g. "64M".
func (b BytesCount) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BytesCount) UnmarshalText(text []byte) error {
	n, err := ParseBytesCount(string(text))
	if err != nil {
		return err
	}
	*b = n
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b BytesCount) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}
