/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

import (
	"context"
	"time"
)

// PendingCounter is implemented by caches that can report the number of unfinished lookups.
type PendingCounter interface {
	Pending() int
}

// WaitForIdle blocks until there are no pending lookups or the context is done.
// Owners call it before tearing a batcher down: the batcher itself does not drain its queue on shutdown.
func WaitForIdle(ctx context.Context, pc PendingCounter, checkInterval time.Duration) error {
	if pc.Pending() == 0 {
		return nil
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if pc.Pending() == 0 {
				return nil
			}
		}
	}
}
