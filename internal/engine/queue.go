package engine

import (
	"sync"

	"github.com/roach88/accumulog/internal/ir"
)

// Result is the outcome of a queued call.
type Result struct {
	Receipt ir.Receipt
	Err     error
}

// request is a queued call awaiting dispatch by the Run loop.
type request struct {
	origin  ir.Origin
	payload []byte
	result  chan Result // Buffered, size 1
}

// requestQueue is a thread-safe FIFO queue of submitted calls.
//
// The queue is unbounded so submitters never block on a slow writer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type requestQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{} // Signals request availability (buffered, size 1)
}

// newRequestQueue creates an empty request queue.
func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (request{}, false) if queue is empty.
func (q *requestQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}

	r := q.requests[0]

	// Nil out the slot so the payload can be collected
	q.requests[0] = request{}

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more requests will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain fails every pending request with err and empties the queue.
func (q *requestQueue) Drain(err error) {
	for {
		r, ok := q.TryDequeue()
		if !ok {
			return
		}
		r.result <- Result{Err: err}
	}
}
