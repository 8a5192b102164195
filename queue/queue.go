// Package queue implements the event queue used by a reactor Connector: a
// concurrent, multi-producer/single-consumer FIFO whose Enqueue and Dequeue
// report accurate sizes, adapted from the chunked linked-list design of the
// teacher's ChunkedIngress (joeycumines-go-utilpkg/eventloop/ingress.go).
// Where ChunkedIngress documents "CALLER MUST HOLD EXTERNAL MUTEX" because
// it backs a single-goroutine event loop, this queue carries its own mutex:
// a Connector's queue is pushed to by any number of concurrent sender
// goroutines, per spec.md's Connector ownership model.
package queue

import "sync"

const chunkSize = 128

// chunk is a fixed-size node in the chunked linked list, reused via a
// pool per queue to amortize allocation under sustained throughput.
type chunk[T any] struct {
	items   [chunkSize]T
	next    *chunk[T]
	readPos int
	pos     int
}

// EventQueue is a typed, concurrent-safe FIFO of events belonging to one
// Connector. Enqueue returns the new length (post-insert); Dequeue returns
// the queue's length after the removal (i.e. "remaining").
type EventQueue[T any] struct {
	mu      sync.Mutex
	head    *chunk[T]
	tail    *chunk[T]
	length  int
	sealed  bool
	onSeal  func()
	pool    []*chunk[T]
	poolCap int
}

// New creates an empty EventQueue.
func New[T any]() *EventQueue[T] {
	return &EventQueue[T]{poolCap: 64}
}

func (q *EventQueue[T]) getChunk() *chunk[T] {
	if n := len(q.pool); n > 0 {
		c := q.pool[n-1]
		q.pool = q.pool[:n-1]
		return c
	}
	return &chunk[T]{}
}

func (q *EventQueue[T]) putChunk(c *chunk[T]) {
	var zero T
	for i := 0; i < c.pos; i++ {
		c.items[i] = zero
	}
	c.pos, c.readPos, c.next = 0, 0, nil
	if len(q.pool) < q.poolCap {
		q.pool = append(q.pool, c)
	}
}

// Enqueue appends x to the queue and returns the new size. Returns
// (size, false) if the queue has been sealed: the event is not appended.
func (q *EventQueue[T]) Enqueue(x T) (size int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return q.length, false
	}

	if q.tail == nil {
		q.tail = q.getChunk()
		q.head = q.tail
	}
	if q.tail.pos == chunkSize {
		next := q.getChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.items[q.tail.pos] = x
	q.tail.pos++
	q.length++
	return q.length, true
}

// Dequeue removes and returns the oldest element, along with the number of
// elements remaining after removal. ok is false if the queue was empty.
func (q *EventQueue[T]) Dequeue() (x T, remaining int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil || q.head.readPos >= q.head.pos {
		if q.head != nil && q.head == q.tail {
			q.head.pos, q.head.readPos = 0, 0
		}
		var zero T
		return zero, q.length, false
	}

	x = q.head.items[q.head.readPos]
	var zero T
	q.head.items[q.head.readPos] = zero
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos, q.head.readPos = 0, 0
		} else {
			old := q.head
			q.head = q.head.next
			q.putChunk(old)
		}
	}
	return x, q.length, true
}

// Len returns the current queue length.
func (q *EventQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// IsSealed reports whether Unreact has been called.
func (q *EventQueue[T]) IsSealed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sealed
}

// OnUnreact registers the terminator callback invoked (once) by Unreact.
func (q *EventQueue[T]) OnUnreact(fn func()) {
	q.mu.Lock()
	q.onSeal = fn
	q.mu.Unlock()
}

// Unreact irrevocably seals the queue: subsequent Enqueue calls are
// rejected, and the registered terminator callback (if any) fires exactly
// once, outside the lock. Safe to call more than once; only the first call
// has effect (spec.md §8 property 7, idempotent seal).
func (q *EventQueue[T]) Unreact() {
	q.mu.Lock()
	if q.sealed {
		q.mu.Unlock()
		return
	}
	q.sealed = true
	cb := q.onSeal
	q.mu.Unlock()

	if cb != nil {
		cb()
	}
}
