// Package reactor implements the scheduling and execution core of a
// message-driven reactor runtime: many lightweight actors ("reactors") run
// on a small pool of worker threads, dispatching events through typed
// channels with adaptive batching and cooperative preemption.
//
// # Architecture
//
// A [Frame] is the per-reactor scheduling record. It owns the reactor's
// lifecycle (Fresh -> Running -> Terminated), its set of [Connector]s
// (typed event queues), the isolation token that guarantees at most one
// worker goroutine ever runs a given reactor's code at a time, and a
// self-tuning spindown controller that amortizes preemption cost by
// spinning briefly for follow-up events after a batch drains dry.
//
// A [System] owns the process-wide [Frame] registry (name -> info) and acts
// as the factory for new Frames. A [Scheduler] is supplied by the caller
// and owns threads and batch budgets; this package ships one reference
// implementation in the sibling package reactor/pool, but does not mandate
// it - scheduler selection policy is explicitly out of scope for the core.
//
// External code drives a reactor by calling [Channel.Enqueue], which
// deposits an event into the addressed Connector's queue and, on the
// empty-to-one transition, asks the Scheduler to run the owning Frame. A worker
// goroutine later calls [Frame.ExecuteBatch], which acquires the
// isolation token, drains pending connectors until the Scheduler's batch
// budget is exhausted, optionally spins for follow-up events, then
// releases and either reschedules or goes idle.
package reactor
