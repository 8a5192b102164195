package reactor

// ringChunkSize is the number of connector slots per node. Chosen to match
// the teacher's ChunkedIngress chunk size: enough for cache locality without
// wasting much space on a ring that usually holds a handful of connectors.
const ringChunkSize = 32

// ringChunk is a fixed-size node in the unrolled linked list.
type ringChunk struct {
	items   [ringChunkSize]*Connector
	next    *ringChunk
	readPos int
	pos     int
}

// unrolledRing is the Frame's pendingQueues: a FIFO of Connectors whose
// event queues are non-empty and not sealed. It is an "unrolled" linked
// list (array-backed nodes, not one-pointer-per-element) for the same
// reason the teacher's ChunkedIngress is: push/pop are O(1) amortized and
// the array layout is cache-friendly.
//
// unrolledRing is NOT internally synchronized. Every method must be called
// with the owning Frame's monitor held - exactly the contract the teacher
// documents on ChunkedIngress ("CALLER MUST HOLD EXTERNAL MUTEX"), here
// enforced by convention (all call sites are inside frame.go's monitor
// critical sections) rather than by a second lock.
type unrolledRing struct {
	head, tail *ringChunk
	length     int
}

// pushBack appends c to the tail of the ring.
func (r *unrolledRing) pushBack(c *Connector) {
	if r.tail == nil {
		r.tail = &ringChunk{}
		r.head = r.tail
	}
	if r.tail.pos == ringChunkSize {
		next := &ringChunk{}
		r.tail.next = next
		r.tail = next
	}
	r.tail.items[r.tail.pos] = c
	r.tail.pos++
	r.length++
}

// popFront removes and returns the head Connector, or (nil, false) if the
// ring is empty.
func (r *unrolledRing) popFront() (*Connector, bool) {
	if r.head == nil || r.head.readPos >= r.head.pos {
		if r.head != nil && r.head == r.tail {
			r.head.pos, r.head.readPos = 0, 0
		}
		return nil, false
	}

	c := r.head.items[r.head.readPos]
	r.head.items[r.head.readPos] = nil
	r.head.readPos++
	r.length--

	if r.head.readPos >= r.head.pos {
		if r.head == r.tail {
			r.head.pos, r.head.readPos = 0, 0
		} else {
			r.head = r.head.next
		}
	}
	return c, true
}

// len returns the number of connectors currently queued.
func (r *unrolledRing) len() int {
	return r.length
}

// isEmpty reports whether the ring holds no connectors.
func (r *unrolledRing) isEmpty() bool {
	return r.length == 0
}
