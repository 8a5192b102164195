package reactor

import "math/rand"

// spindownState is the per-Frame adaptive idle-spin controller, per
// spec.md §4.7. When a batch's drain loop finds pendingQueues empty, the
// Frame spins for up to `value` ticks (polling for newly-pending work
// every tenth tick) before giving up the batch - betting that a
// just-delivered event will trigger a quick follow-up event (a classic
// request/reply or fan-out pattern) without paying the full cost of
// descheduling and rescheduling through the Scheduler.
//
// `value` self-tunes: every batch's outcome (did a spin find a follow-up?)
// feeds recordBatch, which recomputes value as a fraction of spindownMax
// driven by the empirical follow-up rate, then applies an unconditional
// cooldown so a burst of follow-up activity decays back down once it
// stops recurring.
type spindownState struct {
	value              int
	totalBatches       int
	totalSpindownScore int
	rng                *rand.Rand
}

func newSpindownState(cfg Config, seed int64) spindownState {
	return spindownState{
		value: cfg.SpindownInitial,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// trySpinDown spins up to sd.value ticks, polling the Frame's pending ring
// (under its monitor) every tenth tick. Returns found=true the moment a
// poll sees pending work, without consuming it - the caller re-enters
// popNextPending itself. score is 1 if found, 0 otherwise; it feeds
// recordBatch's follow-up-rate estimate.
func (f *Frame) trySpinDown() (found bool, score int) {
	spinsLeft := f.spindown.value
	for spinsLeft > 0 {
		spinsLeft--
		if spinsLeft%10 == 0 {
			f.mu.Lock()
			empty := f.pending.isEmpty()
			f.mu.Unlock()
			if !empty {
				return true, 1
			}
		}
	}
	return false, 0
}

// recordBatch folds one batch's spindown score into the controller and
// recomputes value, per spec.md §4.7's algorithm: mutate (recompute from
// the running follow-up rate) either unconditionally when this batch
// scored a hit, or probabilistically otherwise (spindownMutationRate),
// then always apply the cooldown decay.
func (f *Frame) recordBatch(score int) {
	sd := &f.spindown
	sd.totalBatches++
	sd.totalSpindownScore += score

	if score >= 1 || sd.rng.Float64() < f.cfg.SpindownMutationRate {
		coef := float64(sd.totalSpindownScore) / float64(sd.totalBatches)

		if sd.totalBatches >= f.cfg.SpindownTestThreshold && f.cfg.SpindownTestIterations > 0 {
			// Once a Frame has run at least spindownTestThreshold batches,
			// bias upward for the following spindownTestIterations batches -
			// not enough of the empirical rate's history is past the
			// threshold yet for it alone to be trustworthy, so lean toward
			// the generous end of the range while it ramps up.
			ramp := 1 - float64(sd.totalBatches-f.cfg.SpindownTestThreshold)/float64(f.cfg.SpindownTestIterations)
			if ramp > 0 {
				coef += ramp
			}
		}

		if coef < 0 {
			coef = 0
		}
		if coef > 1 {
			coef = 1
		}
		sd.value = int(float64(f.cfg.SpindownMax) * coef)
	}

	sd.value -= sd.value/f.cfg.SpindownCooldownRate + 1
	if sd.value < f.cfg.SpindownMin {
		sd.value = f.cfg.SpindownMin
	}
	if sd.value > f.cfg.SpindownMax {
		sd.value = f.cfg.SpindownMax
	}
}
