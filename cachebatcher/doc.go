/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cachebatcher provides a cache middleware that bounds the number of lookups
// dispatched in parallel to an expensive asynchronous backend.
//
// Lookups that arrive while all dispatch slots are busy wait in a bounded FIFO queue.
// When a slot frees up, the whole queue is sent to the backend as a single MultiGet batch.
// When the queue is full, new lookups are dropped immediately and reported to the caller as
// cache.StateDropped. Every caller's callback is invoked exactly once.
package cachebatcher
