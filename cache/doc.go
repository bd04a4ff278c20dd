/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cache defines the asynchronous key/value contract shared by all caches of this module
// (batcher, LRU store, worker-pool adaptor, Redis backend).
// A lookup never returns its result directly: it is delivered exactly once to a Callback.
package cache
