package grid

import (
	"sync"

	"github.com/roach88/gridview/internal/remote"
)

// outcomeQueue is a thread-safe FIFO of fetch outcomes.
//
// Fetch goroutines enqueue; the view's writer dequeues. The queue is
// unbounded so a slow writer never blocks a fetch goroutine.
//
// The signal channel enables context-aware waiting in View.Run.
type outcomeQueue struct {
	mu     sync.Mutex
	items  []remote.Outcome
	closed bool
	signal chan struct{} // buffered, size 1
}

func newOutcomeQueue() *outcomeQueue {
	return &outcomeQueue{
		items:  make([]remote.Outcome, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an outcome to the back of the queue.
// Returns false if the queue is closed.
func (q *outcomeQueue) Enqueue(o remote.Outcome) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, o)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front outcome without blocking.
func (q *outcomeQueue) TryDequeue() (remote.Outcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return remote.Outcome{}, false
	}

	o := q.items[0]
	// Release the result records held by the slot
	q.items[0] = remote.Outcome{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return o, true
}

// Wait returns a channel that signals when outcomes may be available.
// It is closed when the queue is closed.
func (q *outcomeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *outcomeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further enqueues and wakes waiters.
func (q *outcomeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
