/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cachetest provides helpers for testing code built on top of cache.Cache:
// a cache that holds lookups of chosen keys until they are released,
// a callback that can be waited for, and a cache that observes dispatch concurrency.
package cachetest
