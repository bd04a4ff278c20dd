/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package rediscache provides an asynchronous cache.Cache backed by Redis.
// Every operation runs on its own goroutine, MultiGet is executed as a single MGET command,
// and transient failures are retried with exponential backoff.
package rediscache
