/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether the next operation may be performed now.
type Limiter interface {
	Allow(ctx context.Context) (allow bool, retryAfter time.Duration, err error)
}

// Algorithm is a name of the rate limiting algorithm.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmTokenBucket   Algorithm = "token-bucket"
	AlgorithmLeakyBucket   Algorithm = "leaky-bucket"
	AlgorithmSlidingWindow Algorithm = "sliding-window"
)

// AvailableAlgorithms lists names of the supported algorithms.
var AvailableAlgorithms = []string{
	string(AlgorithmTokenBucket), string(AlgorithmLeakyBucket), string(AlgorithmSlidingWindow),
}

// NewLimiter creates a limiter implementing the algorithm.
// maxBurst is ignored by the sliding window algorithm.
func NewLimiter(alg Algorithm, maxRate Rate, maxBurst int) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate should be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	switch alg {
	case AlgorithmTokenBucket:
		return NewTokenBucketLimiter(maxRate, maxBurst), nil
	case AlgorithmLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, maxBurst)
	case AlgorithmSlidingWindow:
		return NewSlidingWindowLimiter(maxRate)
	}
	return nil, fmt.Errorf("unknown rate limiting algorithm %q", alg)
}

const minRetryAfter = time.Millisecond

// Wait blocks until the limiter allows the next operation or ctx is done.
func Wait(ctx context.Context, l Limiter) error {
	for {
		allow, retryAfter, err := l.Allow(ctx)
		if err != nil {
			return err
		}
		if allow {
			return nil
		}
		if retryAfter < minRetryAfter {
			retryAfter = minRetryAfter
		}
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
