package reactor

// Scheduler is the external policy plugin spec.md §6 describes: the Frame
// core never decides when or on which goroutine a batch runs, it only
// calls out to the Scheduler at well-defined points. Each Frame is given
// its Scheduler when it is spawned (System.Spawn's scheduler argument);
// any number of Frames may share one Scheduler.
//
// Schedule is called whenever a Frame transitions from idle to
// runnable - from enqueueEvent's size==1 fast path, from Activate, or as
// a reschedule at the end of a batch that left pending work behind. It
// must not block, and must not call back into the Frame synchronously;
// its job is only to arrange for ExecuteBatch to run eventually, on
// whatever goroutine the policy chooses.
//
// Preschedule is called at the very top of ExecuteBatch, before the
// isolation-token CAS, as a policy hook (a worker-pool Scheduler might use
// it to record queue-wait latency); it runs on the executing goroutine.
//
// Unschedule is called once ExecuteBatch has fully released the Frame
// (isolation token returned, termination already checked), passing the
// batch's error (nil on a clean preemption). A policy may use this to
// release a semaphore slot or requeue the goroutine itself.
type Scheduler interface {
	Schedule(f *Frame)
	Preschedule(sys *System)
	Unschedule(sys *System, err error)
	NewState(f *Frame) SchedulerState
}

// SchedulerState is the opaque per-batch record a Scheduler hands back
// from NewState at the start of every ExecuteBatch call. The Frame core
// calls OnBatchStart once, then OnBatchEvent after every delivered event,
// using its bool return to decide whether to keep draining or to preempt
// (re-enqueueing the current Connector if it still has events) and return
// control to the Scheduler. A nil SchedulerState (from a nil Scheduler)
// makes the Frame core drain to completion every batch; see pool.Pool in
// package pool for a budget-enforcing SchedulerState built on top of
// Config.BatchEventBudget.
type SchedulerState interface {
	OnBatchStart(f *Frame)
	OnBatchEvent(f *Frame) bool
}
