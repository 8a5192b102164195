package reactor

import (
	"fmt"
	"sync/atomic"

	"github.com/reactorcore/reactor/queue"
)

// Handler receives events dequeued from a Connector's queue, invoked
// synchronously on the Frame's executing goroutine during a batch. This is
// the Frame core's minimal stand-in for the user-facing event-stream
// combinator library, which spec.md §1 puts out of scope: the combinator
// layer would subscribe a Handler per Connector under the hood.
type Handler func(event any)

// Channel is the routable, shareable handle senders use to reach a
// Connector. Any number of goroutines may hold and use the same Channel
// concurrently; its lifetime is the longest holder's, independent of the
// owning Frame. Per spec.md §9, a Channel carries only a non-owning
// reference to its Connector - it never extends the Connector's or the
// Frame's lifetime.
type Channel struct {
	Name      string
	FrameName string
	conn      *Connector
}

// Enqueue deposits x into the underlying Connector's queue. It is safe to
// call from any goroutine, including concurrently with other senders. It
// returns FrameTerminatedError if the owning Frame has already terminated,
// and (nil, false)-equivalent silently-dropped semantics if the Connector
// itself has been sealed (mirroring spec.md's EventQueue.Enqueue, which
// rejects pushes to a sealed queue without erroring the caller - seal is a
// receiver-side decision the sender cannot be expected to have observed
// in time to avoid the race).
func (c *Channel) Enqueue(x any) error {
	return c.conn.frame.enqueueEvent(c.conn, x)
}

// IsOpen reports whether the underlying Connector has not been sealed.
func (c *Channel) IsOpen() bool { return !c.conn.queue.IsSealed() }

// IsSealed reports whether the underlying Connector has been sealed.
func (c *Channel) IsSealed() bool { return c.conn.queue.IsSealed() }

// Connector is a named event queue owned by exactly one Frame, plus the
// outward-facing Channel senders use to reach it.
type Connector struct {
	uid      uint64
	name     string
	frame    *Frame
	queue    *queue.EventQueue[any]
	isDaemon bool
	shortcut bool
	extras   map[string]any
	channel  *Channel
	handler  atomic.Pointer[Handler]
	sealing  atomic.Bool
}

// Name returns the Connector's name, unique within its Frame.
func (c *Connector) Name() string { return c.name }

// UID returns the Connector's process-unique (within its Frame) identifier.
func (c *Connector) UID() uint64 { return c.uid }

// IsDaemon reports whether this Connector is exempt from the Frame's
// non-daemon termination precondition.
func (c *Connector) IsDaemon() bool { return c.isDaemon }

// Shortcut reports whether this Connector was opened with the fast-path
// local-delivery flag; exposed for combinator layers that skip
// serialization on same-process delivery. The Frame core does not treat it
// specially - shortcut delivery is a transport concern spec.md §1 excludes.
func (c *Connector) Shortcut() bool { return c.shortcut }

// Extra looks up an extensible, type-tagged value attached at open time.
func (c *Connector) Extra(key string) (any, bool) {
	v, ok := c.extras[key]
	return v, ok
}

// Channel returns the Connector's shareable outward-facing handle.
func (c *Connector) Channel() *Channel { return c.channel }

// SetHandler installs (or replaces) the callback invoked for events
// dequeued from this Connector. Safe to call at any time; only the
// currently-installed Handler is used by the next dequeue.
func (c *Connector) SetHandler(h Handler) {
	if h == nil {
		c.handler.Store(nil)
		return
	}
	c.handler.Store(&h)
}

// hasPendingEvents reports whether the Connector's queue is non-empty.
func (c *Connector) hasPendingEvents() bool { return c.queue.Len() > 0 }

// PendingEvents returns the current queue length.
func (c *Connector) PendingEvents() int { return c.queue.Len() }

// IsSealed reports whether Seal has completed for this Connector.
func (c *Connector) IsSealed() bool { return c.queue.IsSealed() }

// ConnectorOptions customize OpenConnector.
type ConnectorOptions struct {
	// Name requests a specific channel name. If empty, a unique name of
	// the form "channel-<uid>-<k>" is chosen.
	Name string
	// IsDaemon exempts the Connector from the non-daemon termination
	// precondition (spec.md invariant 4).
	IsDaemon bool
	// Shortcut marks the Connector eligible for fast-path local delivery.
	Shortcut bool
	// Extras attaches arbitrary type-tagged metadata.
	Extras map[string]any
	// Handler, if non-nil, is installed on the Connector before it is
	// published to the registry, so no event can be dequeued without a
	// handler already present.
	Handler Handler
}

// OpenConnector implements spec.md §4.2: the dynamic connector-creation
// protocol. It must only be called by the goroutine currently executing
// this Frame's batch (or, for the Frame's own default/internal
// connectors, from System.Spawn prior to first scheduling).
func (f *Frame) OpenConnector(opts ConnectorOptions) (*Connector, error) {
	if f.state.IsTerminated() {
		return nil, &FrameTerminatedError{Frame: f.name}
	}

	uid := f.idCounter.Add(1) - 1

	for {
		info := f.sys.registry.forName(f.name)
		if info.isEmpty() {
			return nil, &FrameTerminatedError{Frame: f.name}
		}

		effectiveName := opts.Name
		if effectiveName != "" {
			if b, ok := info.connectors[effectiveName]; ok && !b.isPending() {
				return nil, &NameInUseError{Frame: f.name, Name: effectiveName}
			}
		} else {
			for k := 0; ; k++ {
				candidate := fmt.Sprintf("channel-%d-%d", uid, k)
				if _, taken := info.connectors[candidate]; !taken {
					effectiveName = candidate
					break
				}
			}
		}

		q := queue.New[any]()
		conn := &Connector{
			uid:      uid,
			name:     effectiveName,
			frame:    f,
			queue:    q,
			isDaemon: opts.IsDaemon,
			shortcut: opts.Shortcut,
			extras:   opts.Extras,
		}
		conn.channel = &Channel{Name: effectiveName, FrameName: f.name, conn: conn}
		if opts.Handler != nil {
			conn.SetHandler(opts.Handler)
		}

		prior, hadPending := info.connectors[effectiveName]
		next := info.withBinding(effectiveName, channelBinding{channel: conn.channel})

		if !f.sys.registry.tryReplace(f.name, info, next) {
			continue // another mutator won the race; restart from the top
		}

		if hadPending && prior.isPending() {
			for _, waiter := range prior.listeners {
				waiter <- conn.channel
				close(waiter)
			}
		}

		if !opts.IsDaemon {
			f.mu.Lock()
			f.nonDaemonCount++
			f.mu.Unlock()
		}

		f.log.Debugf("opened connector %q (uid=%d daemon=%v)", effectiveName, uid, opts.IsDaemon)
		return conn, nil
	}
}

// WaitForChannel subscribes to the future existence of a connector named
// name on this Frame's System, returning a channel that receives exactly
// one *Channel value once OpenConnector publishes that name - spec.md
// §8 scenario 5. If the name is already bound, the value is delivered
// immediately (still via the returned channel, for a uniform API).
func (sys *System) WaitForChannel(frameName, connectorName string) <-chan *Channel {
	result := make(chan *Channel, 1)
	for {
		info := sys.registry.forName(frameName)
		if b, ok := info.connectors[connectorName]; ok && !b.isPending() {
			result <- b.channel
			close(result)
			return result
		}

		var existing channelBinding
		if b, ok := info.connectors[connectorName]; ok {
			existing = b
		}
		existing.listeners = append(append([]chan *Channel{}, existing.listeners...), result)

		next := info
		if info.isEmpty() {
			next = &registryInfo{connectors: map[string]channelBinding{connectorName: existing}}
		} else {
			next = info.withBinding(connectorName, existing)
		}

		if sys.registry.tryReplace(frameName, info, next) {
			return result
		}
		// lost the race - retry, re-reading the latest Info.
	}
}

// SealConnector implements spec.md §4.8. It must be called by the
// goroutine currently executing conn's Frame.
func (f *Frame) SealConnector(conn *Connector) {
	if conn.frame != f {
		return
	}
	if !conn.sealing.CompareAndSwap(false, true) {
		return // already sealed (or sealing) - idempotent per spec.md §8 property 7
	}

	if !conn.isDaemon {
		f.mu.Lock()
		f.nonDaemonCount--
		f.mu.Unlock()
	}

	for {
		info := f.sys.registry.forName(f.name)
		if info.isEmpty() {
			break
		}
		if _, ok := info.connectors[conn.name]; !ok {
			break
		}
		next := info.withoutConnector(conn.name)
		if f.sys.registry.tryReplace(f.name, info, next) {
			break
		}
	}

	conn.queue.Unreact()
	f.log.Debugf("sealed connector %q", conn.name)
}
