/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides an in-memory cache.Cache bounded by the total size of stored keys and values,
// with LRU eviction policy, optional expiration, and Prometheus metrics.
// Lookups are completed synchronously, on the calling goroutine.
package lrucache
