/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit paces a stream of operations to a configured rate.
//
// Three algorithms are available:
//   - token bucket (golang.org/x/time/rate)
//   - leaky bucket, GCRA (github.com/throttled/throttled)
//   - sliding window (github.com/RussellLuo/slidingwindow)
//
// Wait blocks until the limiter allows the next operation.
package ratelimit
