/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// RetryPolicy defines backoff strategy for failed Redis commands.
type RetryPolicy interface {
	NewBackOff() backoff.BackOff
}

// RetryPolicyFunc is an adapter to allow the use of ordinary functions as RetryPolicy.
type RetryPolicyFunc func() backoff.BackOff

// NewBackOff implements RetryPolicy.
func (f RetryPolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialRetryPolicy repeats a command up to maxRetries times with exponentially growing delays.
type ExponentialRetryPolicy struct {
	initialInterval time.Duration
	maxRetries      int
}

// NewExponentialRetryPolicy returns an exponential retry policy with the given initial interval and max retries count.
// Zero maxRetries disables retries.
func NewExponentialRetryPolicy(initialInterval time.Duration, maxRetries int) ExponentialRetryPolicy {
	return ExponentialRetryPolicy{initialInterval: initialInterval, maxRetries: maxRetries}
}

// NewBackOff implements RetryPolicy.
func (p ExponentialRetryPolicy) NewBackOff() backoff.BackOff {
	if p.maxRetries <= 0 {
		return &backoff.StopBackOff{}
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.MaxElapsedTime = 0 // bounded by the number of retries and the command timeout
	bf := backoff.WithMaxRetries(eb, uint64(p.maxRetries))
	bf.Reset()
	return bf
}

// isRetryable reports whether the command failed for a reason that may go away.
// Missing keys and expired contexts are final.
func isRetryable(err error) bool {
	return !errors.Is(err, redis.Nil) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// doWithRetry executes fn until it succeeds, fails permanently, the policy gives up, or ctx is done.
// notify is called before every retry and can be nil.
func doWithRetry(ctx context.Context, p RetryPolicy, notify backoff.Notify, fn func(ctx context.Context) error) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, bctx, notify)
}
