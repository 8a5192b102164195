package reactor

// Test-only Scheduler implementations. Exercising the Frame core requires
// *some* Scheduler, but spec.md explicitly puts scheduling policy out of
// scope for the core - so tests bring their own minimal ones rather than
// reaching for package pool, keeping these tests focused on Frame
// behavior, not Pool behavior (pool has its own tests).

// goroutineScheduler schedules each batch on a freshly spawned goroutine.
// It never bounds concurrency itself - the Frame's own activeCount CAS
// spin is what serializes concurrent Schedule calls for one Frame, which
// is exactly the property these tests exercise.
type goroutineScheduler struct{}

func (goroutineScheduler) Schedule(f *Frame) {
	go func() { _ = f.ExecuteBatch() }()
}
func (goroutineScheduler) Preschedule(*System)            {}
func (goroutineScheduler) Unschedule(*System, error)      {}
func (goroutineScheduler) NewState(*Frame) SchedulerState { return nil }

// manualScheduler never runs anything on its own; tests call
// Frame.ExecuteBatch directly, so batch boundaries are fully
// deterministic. Schedule calls are merely counted.
type manualScheduler struct {
	scheduled int
}

func (s *manualScheduler) Schedule(*Frame)                 { s.scheduled++ }
func (s *manualScheduler) Preschedule(*System)             {}
func (s *manualScheduler) Unschedule(*System, error)       {}
func (s *manualScheduler) NewState(*Frame) SchedulerState { return nil }
