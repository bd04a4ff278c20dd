/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachetest

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachebatcher/cache"
)

// SyncCallback is a cache.Callback that records the outcome and allows waiting for it.
type SyncCallback struct {
	calls atomic.Int32
	once  sync.Once
	done  chan struct{}

	mu      sync.Mutex
	outcome cache.Outcome
}

var _ cache.Callback = (*SyncCallback)(nil)

// NewSyncCallback creates a new SyncCallback.
func NewSyncCallback() *SyncCallback {
	return &SyncCallback{done: make(chan struct{})}
}

// Done implements cache.Callback. Only the first outcome is recorded.
func (cb *SyncCallback) Done(outcome cache.Outcome) {
	if cb.calls.Inc() != 1 {
		return
	}
	cb.mu.Lock()
	cb.outcome = outcome
	cb.mu.Unlock()
	cb.once.Do(func() { close(cb.done) })
}

// Wait blocks until Done is called.
func (cb *SyncCallback) Wait() cache.Outcome {
	<-cb.done
	return cb.Outcome()
}

// WaitTimeout blocks until Done is called or the timeout expires.
func (cb *SyncCallback) WaitTimeout(timeout time.Duration) (cache.Outcome, bool) {
	select {
	case <-cb.done:
		return cb.Outcome(), true
	case <-time.After(timeout):
		return cache.Outcome{}, false
	}
}

// IsDone reports whether Done has been called.
func (cb *SyncCallback) IsDone() bool {
	return cb.calls.Load() > 0
}

// Calls returns how many times Done has been called.
func (cb *SyncCallback) Calls() int {
	return int(cb.calls.Load())
}

// Outcome returns the recorded outcome.
func (cb *SyncCallback) Outcome() cache.Outcome {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.outcome
}
