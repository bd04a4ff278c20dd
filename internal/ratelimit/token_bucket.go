/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements token bucket algorithm.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// maxBurst is the number of operations allowed on top of the first one without waiting.
func NewTokenBucketLimiter(maxRate Rate, maxBurst int) *TokenBucketLimiter {
	if maxBurst < 0 {
		maxBurst = 0
	}
	every := maxRate.Duration / time.Duration(maxRate.Count)
	return &TokenBucketLimiter{rate.NewLimiter(rate.Every(every), maxBurst+1)}
}

// Allow checks if the operation should be allowed based on the rate limit.
func (l *TokenBucketLimiter) Allow(_ context.Context) (allow bool, retryAfter time.Duration, err error) {
	res := l.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}
