/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import "fmt"

// KeyState describes the result of a single key lookup.
type KeyState int

// Key states.
const (
	// StateNotFound means the key is absent or the backend failed to look it up.
	StateNotFound KeyState = iota
	// StateAvailable means the value was found.
	StateAvailable
	// StateDropped means the lookup was refused by admission control and never reached the backend.
	StateDropped
)

// String returns a human-readable name of the state.
func (s KeyState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateNotFound:
		return "not_found"
	case StateDropped:
		return "dropped"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Outcome is a terminal result of a lookup.
type Outcome struct {
	State KeyState
	Value []byte

	// Err is set by backends that failed to perform the lookup.
	// Consumers should treat an outcome with non-nil Err as a miss.
	Err error
}

// Found reports whether the outcome carries a value.
// Dropped and failed lookups are not found.
func (o Outcome) Found() bool {
	return o.State == StateAvailable && o.Err == nil
}

// Available returns an outcome for a found value.
func Available(value []byte) Outcome {
	return Outcome{State: StateAvailable, Value: value}
}

// NotFound returns an outcome for a missing key.
func NotFound() Outcome {
	return Outcome{State: StateNotFound}
}

// Dropped returns an outcome for a lookup refused by admission control.
func Dropped() Outcome {
	return Outcome{State: StateDropped}
}

// Failed returns an outcome for a lookup the backend could not perform.
func Failed(err error) Outcome {
	return Outcome{State: StateNotFound, Err: err}
}

// Callback receives the outcome of a lookup. Done is called exactly once per lookup,
// possibly on another goroutine than the one that initiated the lookup.
type Callback interface {
	Done(outcome Outcome)
}

// CallbackFunc is an adapter to allow the use of ordinary functions as Callback.
type CallbackFunc func(outcome Outcome)

// Done implements Callback.
func (f CallbackFunc) Done(outcome Outcome) {
	f(outcome)
}

// CandidateValidator may be implemented by a Callback that wants to reject found values
// (e.g. stale or foreign entries). A rejected candidate is reported as not found.
type CandidateValidator interface {
	ValidateCandidate(key string, state KeyState) bool
}

// ValidateAndReport checks the outcome with the callback's CandidateValidator (if any)
// and then calls Done. Caches that produce hits should use it instead of calling Done directly.
func ValidateAndReport(key string, outcome Outcome, cb Callback) {
	if outcome.State == StateAvailable && outcome.Err == nil {
		if v, ok := cb.(CandidateValidator); ok && !v.ValidateCandidate(key, outcome.State) {
			outcome = NotFound()
		}
	}
	cb.Done(outcome)
}

// Request is a single lookup inside a batch.
type Request struct {
	Key      string
	Callback Callback
}

// Cache is an asynchronous key/value store.
type Cache interface {
	// Get looks up the key and eventually calls cb.Done exactly once
	// with either an available value or a miss.
	Get(key string, cb Callback)

	// MultiGet looks up several keys at once. Each request's callback is called exactly once.
	MultiGet(reqs []Request)

	// Put stores the value. The operation may complete asynchronously.
	Put(key string, value []byte)

	// Delete removes the key. The operation may complete asynchronously.
	Delete(key string)

	// Name describes the cache (and the caches it wraps) for logs and metrics.
	Name() string
}

// HealthChecker may be implemented by a Cache that can tell whether its server is able to serve requests.
// Wrapping caches should forward the check to the cache they wrap.
type HealthChecker interface {
	IsHealthy() bool
}

// IsHealthy reports whether the cache is healthy.
// Caches that do not implement HealthChecker are considered healthy.
func IsHealthy(c Cache) bool {
	if hc, ok := c.(HealthChecker); ok {
		return hc.IsHealthy()
	}
	return true
}

// MultiGetByOne implements MultiGet on top of Get for caches without native batching.
func MultiGetByOne(c Cache, reqs []Request) {
	for _, req := range reqs {
		c.Get(req.Key, req.Callback)
	}
}

// FormatName composes the name of a wrapping cache, e.g. "Batcher(cache=LRU)".
func FormatName(wrapper string, wrapped Cache) string {
	return wrapper + "(cache=" + wrapped.Name() + ")"
}
