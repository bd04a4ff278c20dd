/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

// pendingQueue is a bounded FIFO of lookups waiting for a free dispatch slot.
// It is not thread-safe, Batcher guards it with its own mutex.
type pendingQueue struct {
	maxSize int
	items   []*lookup
}

func newPendingQueue(maxSize int) *pendingQueue {
	return &pendingQueue{maxSize: maxSize}
}

func (q *pendingQueue) pushIfSpace(l *lookup) bool {
	if len(q.items) >= q.maxSize {
		return false
	}
	q.items = append(q.items, l)
	return true
}

// popAll removes all queued lookups preserving their order.
func (q *pendingQueue) popAll() []*lookup {
	items := q.items
	q.items = nil
	return items
}

func (q *pendingQueue) len() int {
	return len(q.items)
}
