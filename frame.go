package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/reactorcore/reactor/rlog"
)

// Frame is a single scheduling unit: one reactor instance, its Connectors,
// and the bookkeeping ExecuteBatch needs to run it safely from any
// goroutine the Scheduler chooses, one batch at a time. Frame is the
// Go translation of spec.md §3's Frame record.
type Frame struct {
	uid   uint64
	sys   *System
	proto ReactorFactory

	name string
	cfg  Config
	log  rlog.Logger

	scheduler Scheduler

	idCounter atomic.Uint64

	// mu is the Frame's monitor: it guards pending, active, nonDaemonCount,
	// and the Fresh->Running lifecycle transition. It is never held across a
	// Scheduler call or a Connector handler invocation. schedulerState is not
	// guarded by mu: only the goroutine holding the isolation token
	// (activeCount) sets or reads it.
	mu             sync.Mutex
	pending        unrolledRing
	active         bool
	nonDaemonCount int
	schedulerState SchedulerState

	// activeCount is the isolation token: CAS 0->1 at the start of
	// ExecuteBatch, reset to 0 at the end. A call that finds it already 1
	// spins (yielding) until the running batch resets it, so two batches of
	// one Frame never overlap; under the Scheduler contract (never call
	// ExecuteBatch concurrently for the same Frame) the CAS succeeds on the
	// first attempt.
	activeCount atomic.Int32

	state *lifecycle

	sysEmitter   *emitter
	terminatedCh chan struct{}

	reactor atomic.Value // holds the constructed reactor value (any)

	defaultConnector  *Connector
	internalConnector *Connector

	spindown spindownState
}

// UID returns the Frame's process-unique (within its System) identifier.
func (f *Frame) UID() uint64 { return f.uid }

// Name returns the Frame's registry name.
func (f *Frame) Name() string { return f.name }

// Config returns the resolved Config this Frame was spawned with.
func (f *Frame) Config() Config { return f.cfg }

// System returns the owning System.
func (f *Frame) System() *System { return f.sys }

// DefaultConnector returns the Connector opened automatically at Spawn
// time under the name "default".
func (f *Frame) DefaultConnector() *Connector { return f.defaultConnector }

// InternalConnector returns the daemon Connector opened automatically at
// Spawn time under the name "internal", exempt from the non-daemon
// termination precondition - intended for a reactor's own
// self-addressed bookkeeping traffic.
func (f *Frame) InternalConnector() *Connector { return f.internalConnector }

// Reactor returns the constructed reactor value, or nil until the Frame's
// first batch has constructed it (construction precedes that batch's
// event deliveries, so handlers always see a non-nil value).
func (f *Frame) Reactor() any { return f.reactor.Load() }

// State returns the Frame's current lifecycle state.
func (f *Frame) State() LifecycleState { return f.state.Load() }

// HasTerminated reports whether the Frame has reached the Terminated
// state.
func (f *Frame) HasTerminated() bool { return f.state.IsTerminated() }

// AwaitTerminated blocks until the Frame terminates, or ctxDone fires.
// Passing a nil channel blocks until termination unconditionally.
func (f *Frame) AwaitTerminated(ctxDone <-chan struct{}) {
	select {
	case <-f.terminatedCh:
	case <-ctxDone:
	}
}

// HasPendingEvents reports whether any Connector on this Frame currently
// has undelivered events.
func (f *Frame) HasPendingEvents() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.pending.isEmpty()
}

// EstimateTotalPendingEvents sums PendingEvents across every Connector
// currently in the pending ring. It is an estimate, not a snapshot under
// a single consistent lock of every Connector queue - concurrent senders
// may be enqueueing to those same Connectors as the sum is taken, per
// spec.md §6.
func (f *Frame) EstimateTotalPendingEvents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for c := f.pending.head; c != nil; c = c.next {
		for i := c.readPos; i < c.pos; i++ {
			if conn := c.items[i]; conn != nil {
				total += conn.PendingEvents()
			}
		}
	}
	return total
}

// Subscribe registers a lifecycle EventListener, invoked synchronously
// (in registration order, on whatever goroutine Emit runs on) for every
// ReactorStarted/ReactorScheduled/ReactorPreempted/ReactorDied/
// ReactorTerminated event this Frame emits.
func (f *Frame) Subscribe(l EventListener) ListenerID {
	return f.sysEmitter.Subscribe(l)
}

// Unsubscribe removes a listener previously registered with Subscribe.
func (f *Frame) Unsubscribe(id ListenerID) bool {
	return f.sysEmitter.Unsubscribe(id)
}

func (f *Frame) emit(ev Event) {
	f.sysEmitter.Emit(ev)
}

// Activate implements spec.md §4.4. If the Frame is not already marked
// active (or scheduleEvenIfActive is true), it marks it active and asks
// the Scheduler to run a batch. Spawn uses Activate(true) to bootstrap a
// Fresh Frame's first batch (construction) even before any Connector has
// received an event.
func (f *Frame) Activate(scheduleEvenIfActive bool) {
	mustSchedule := false
	f.mu.Lock()
	if !f.active || scheduleEvenIfActive {
		f.active = true
		mustSchedule = true
	}
	f.mu.Unlock()

	if mustSchedule && f.scheduler != nil {
		f.scheduler.Schedule(f)
	}
}

// enqueueEvent implements spec.md §4.3: deposit x onto conn's queue, and
// if that transition the Connector from empty to non-empty, push it onto
// the pending ring and activate the Frame if it was idle. Called by
// Channel.Enqueue, so from any goroutine, concurrently.
func (f *Frame) enqueueEvent(conn *Connector, x any) error {
	if f.state.IsTerminated() {
		return &FrameTerminatedError{Frame: f.name}
	}

	size, ok := conn.queue.Enqueue(x)
	if !ok {
		// Sealed: per spec.md, a send racing a seal is silently dropped,
		// not errored - the sender cannot be expected to have observed
		// the seal in time.
		return nil
	}

	if size == 1 {
		mustSchedule := false
		f.mu.Lock()
		f.pending.pushBack(conn)
		if !f.active {
			f.active = true
			mustSchedule = true
		}
		f.mu.Unlock()

		if mustSchedule && f.scheduler != nil {
			f.scheduler.Schedule(f)
		}
	}
	return nil
}

func (f *Frame) popNextPending() (*Connector, bool) {
	f.mu.Lock()
	c, ok := f.pending.popFront()
	f.mu.Unlock()
	return c, ok
}

func (f *Frame) pushPending(c *Connector) {
	f.mu.Lock()
	f.pending.pushBack(c)
	f.mu.Unlock()
}

// deliver invokes conn's installed Handler with event, recovering any
// panic and converting it to a *ReactorDiedError - the Go-idiomatic
// stand-in for spec.md's "throwable escapes the handler" case: rather
// than letting the panic cross back out through ExecuteBatch's caller
// (which could be an arbitrary Scheduler-owned goroutine with no idea
// what a reactor Frame even is), it is normalized into the same error
// type a failed construction produces, and returned through the ordinary
// error channel. ExecuteBatch still emits ReactorDied and forces
// termination exactly as a propagating throwable would.
func (f *Frame) deliver(conn *Connector, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReactorDiedError{Frame: f.name, Cause: r}
		}
	}()
	if h := conn.handler.Load(); h != nil {
		(*h)(event)
	}
	return nil
}

// runBatch implements spec.md §4.6 (the drain loop) and §4.7 (adaptive
// spindown), fully. It drains pending Connectors in FIFO order, asking
// schedulerState.OnBatchEvent after every delivered event whether to keep
// going; when a Connector's queue is caught up it is dropped from the
// ring (or re-pushed at the tail if preempted mid-drain with events still
// queued). When the ring empties entirely, it spins for a bounded number
// of ticks looking for newly-pending work before giving the batch back to
// the Scheduler.
func (f *Frame) runBatch() (preempted bool, err error) {
	if f.scheduler != nil {
		f.schedulerState = f.scheduler.NewState(f)
	}
	onBatchEvent := func() bool {
		if f.schedulerState == nil {
			return true
		}
		return f.schedulerState.OnBatchEvent(f)
	}
	if f.schedulerState != nil {
		f.schedulerState.OnBatchStart(f)
	}

	spinScore := 0
	defer func() { f.recordBatch(spinScore) }()

	for {
		current, ok := f.popNextPending()
		if !ok {
			found, score := f.trySpinDown()
			spinScore += score
			if found {
				continue
			}
			return false, nil
		}

		for {
			event, remaining, hasEvent := current.queue.Dequeue()
			if hasEvent {
				if derr := f.deliver(current, event); derr != nil {
					return false, derr
				}
			}

			if onBatchEvent() {
				if remaining > 0 && !current.queue.IsSealed() {
					continue
				}
				break
			}

			if remaining > 0 && !current.queue.IsSealed() {
				f.pushPending(current)
			}
			return true, nil
		}
	}
}

// ExecuteBatch implements spec.md §4.5: the full batch lifecycle, from
// Preschedule through construction (on a Frame's first call), the drain
// loop, lifecycle event emission, termination detection, and the final
// handoff back to the Scheduler (Unschedule, plus a Schedule reschedule
// if work remains). It must be called by the Scheduler, never directly
// by application code, and never concurrently or re-entrantly for the
// same Frame. A call from a goroutine already inside a batch is rejected
// with NestedExecutionError; a concurrent call for the same Frame is not
// rejected but spins until the running batch releases the isolation
// token. On a Terminated Frame it runs no batch and emits nothing: it
// clears active, calls Unschedule and returns nil.
func (f *Frame) ExecuteBatch() error {
	if f.scheduler != nil {
		f.scheduler.Preschedule(f.sys)
	}

	gid := currentGoroutineID()
	if _, loaded := f.sys.executing.LoadOrStore(gid, f.name); loaded {
		return &NestedExecutionError{Frame: f.name}
	}
	defer f.sys.executing.Delete(gid)

	for !f.activeCount.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}

	if f.state.IsTerminated() {
		f.mu.Lock()
		f.active = false
		f.mu.Unlock()
		f.activeCount.Store(0)
		if f.scheduler != nil {
			f.scheduler.Unschedule(f.sys, nil)
		}
		return nil
	}

	f.mu.Lock()
	constructed := f.state.TryTransition(Fresh, Running)
	f.mu.Unlock()

	var diedErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				diedErr = &ReactorDiedError{Frame: f.name, Cause: r}
			}
		}()

		if constructed {
			f.sys.safeDebugStarted(f)
			value, err := f.proto(f)
			if err != nil {
				diedErr = &ReactorDiedError{Frame: f.name, Cause: err}
				return
			}
			f.reactor.Store(value)
			f.emit(Event{Kind: ReactorStarted, Frame: f.name})
		}

		f.emit(Event{Kind: ReactorScheduled, Frame: f.name})

		_, rerr := f.runBatch()
		if rerr != nil {
			diedErr = rerr
			return
		}

		f.emit(Event{Kind: ReactorPreempted, Frame: f.name})
	}()

	if diedErr != nil && !f.state.IsTerminated() {
		f.emit(Event{Kind: ReactorDied, Frame: f.name, Err: diedErr})
	}

	f.checkTerminated(diedErr != nil)

	f.mu.Lock()
	mustSchedule := false
	if f.state.Load() != Terminated && !f.pending.isEmpty() {
		mustSchedule = true
	} else {
		f.active = false
	}
	f.mu.Unlock()

	f.activeCount.Store(0)

	if f.scheduler != nil {
		f.scheduler.Unschedule(f.sys, diedErr)
		if mustSchedule {
			f.scheduler.Schedule(f)
		}
	}

	return diedErr
}

// checkTerminated implements spec.md §4.9: a Running Frame terminates
// when forced (a throwable escaped the batch) or when its termination
// precondition holds - no pending work and no open non-daemon
// Connectors. Terminate path order matters: the registry slot is
// released, then terminatedCh is closed, and only then is
// ReactorTerminated emitted to listeners - so a panicking listener can
// never prevent release or waiter wakeup, only propagate after both have
// already happened.
func (f *Frame) checkTerminated(forced bool) {
	f.mu.Lock()
	shouldTerminate := false
	if f.state.Load() == Running {
		if forced || (f.pending.isEmpty() && f.nonDaemonCount == 0) {
			shouldTerminate = f.state.TryTransition(Running, Terminated)
		}
	}
	f.mu.Unlock()

	if !shouldTerminate {
		return
	}

	f.sys.safeDebugTerminated(f.reactor.Load())
	f.sys.registry.tryRelease(f.name)
	close(f.terminatedCh)
	f.emit(Event{Kind: ReactorTerminated, Frame: f.name})
}
