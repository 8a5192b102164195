// Package pool implements a worker-pool [reactor.Scheduler]: a bounded
// number of goroutines pull runnable Frames off a mutex-guarded run queue
// (a channel only wakes idle workers) and call
// ExecuteBatch, with concurrency capped by a golang.org/x/sync/semaphore
// weighted semaphore, the same throttling idiom the pack's zoekt
// shards-scheduler (other_examples) uses for search-process concurrency.
//
// This Scheduler is illustrative, not a normative scheduling policy -
// spec.md §1 puts scheduler fairness/ordering/ starvation guarantees out
// of scope for the core, and this package does not attempt to supply
// them: it is one reasonable way to drive Frames, not the only way.
package pool

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/reactorcore/reactor"
	"github.com/reactorcore/reactor/rlog"
)

// Pool is a fixed-concurrency [reactor.Scheduler]. Frames scheduled via
// Schedule are pushed onto an internal run queue; a bounded set of worker
// goroutines (gated by a semaphore.Weighted of the configured capacity)
// pop from it and call ExecuteBatch.
type Pool struct {
	log rlog.Logger

	sem *semaphore.Weighted

	mu      sync.Mutex
	queue   []*reactor.Frame
	queued  map[*reactor.Frame]bool
	closed  bool
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Pool at construction.
type Option interface{ apply(*Pool) }

type optionFunc func(*Pool)

func (f optionFunc) apply(p *Pool) { f(p) }

// WithLogger installs an rlog.Logger; the default discards everything.
func WithLogger(log rlog.Logger) Option {
	return optionFunc(func(p *Pool) {
		if log != nil {
			p.log = log
		}
	})
}

// New constructs a Pool that runs at most concurrency Frames' batches at
// once, across workers goroutines. It starts its worker goroutines
// immediately; call Close to stop them.
func New(concurrency int, workers int, opts ...Option) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if workers < 1 {
		workers = concurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		log:    rlog.Discard(),
		sem:    semaphore.NewWeighted(int64(concurrency)),
		queued: make(map[*reactor.Frame]bool),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt.apply(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		f, ok := p.next()
		if !ok {
			return
		}
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			// Context cancelled (Close); put the Frame back and exit.
			p.mu.Lock()
			p.queue = append([]*reactor.Frame{f}, p.queue...)
			p.queued[f] = true
			p.mu.Unlock()
			return
		}
		if err := f.ExecuteBatch(); err != nil {
			p.log.Warnf("worker %d: frame %q batch returned error: %v", id, f.Name(), err)
		}
		p.sem.Release(1)
	}
}

// next blocks until a Frame is available to run, or the Pool is closed.
func (p *Pool) next() (*reactor.Frame, bool) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, false
		}
		if len(p.queue) > 0 {
			f := p.queue[0]
			p.queue = p.queue[1:]
			delete(p.queued, f)
			p.mu.Unlock()
			return f, true
		}
		p.mu.Unlock()

		select {
		case <-p.wake:
		case <-p.ctx.Done():
			return nil, false
		}
	}
}

// Schedule implements reactor.Scheduler. It is idempotent per Frame: a
// Frame already queued is not queued twice (matching the Frame core's own
// "already active" dedup at the enqueueEvent/Activate level, belt and
// braces against a racing double-Schedule).
func (p *Pool) Schedule(f *reactor.Frame) {
	p.mu.Lock()
	if p.closed || p.queued[f] {
		p.mu.Unlock()
		return
	}
	p.queued[f] = true
	p.queue = append(p.queue, f)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Preschedule implements reactor.Scheduler; the Pool has no per-batch
// bookkeeping to do here.
func (p *Pool) Preschedule(*reactor.System) {}

// Unschedule implements reactor.Scheduler; the semaphore slot is released
// by the worker goroutine immediately after ExecuteBatch returns, not
// here - Unschedule exists for policies that need the batch's outcome
// (err), which this one only logs.
func (p *Pool) Unschedule(_ *reactor.System, err error) {
	if err != nil {
		p.log.Debugf("batch ended with error: %v", err)
	}
}

// NewState implements reactor.Scheduler, returning a budget-enforcing
// SchedulerState: the batch preempts once reactor.Config.BatchEventBudget
// events have been delivered, so one noisy Frame cannot starve the
// Pool's fixed worker set.
func (p *Pool) NewState(f *reactor.Frame) reactor.SchedulerState {
	return &budgetState{budget: f.Config().BatchEventBudget}
}

// Close stops accepting new Schedule calls and waits for in-flight
// batches to finish before returning. Frames still queued when Close is
// called are dropped - a live System/Scheduler should normally outlive
// its Frames, so this is intended for test/demo teardown.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("pool: already closed")
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
	return nil
}

// budgetState is the per-batch reactor.SchedulerState a Pool hands out:
// it counts delivered events and tells the Frame core to preempt once
// budget is exhausted.
type budgetState struct {
	budget   int
	consumed int
}

func (s *budgetState) OnBatchStart(*reactor.Frame) {}

func (s *budgetState) OnBatchEvent(*reactor.Frame) bool {
	s.consumed++
	return s.consumed < s.budget
}
