package reactor

// Config is the resolved configuration record a Frame is constructed with.
// spec.md §1 explicitly puts configuration *parsing* out of scope for the
// core; the core only ever sees an already-validated Config. See
// cmd/reactordemo for a YAML-backed loader that produces one.
type Config struct {
	// SpindownInitial is the spindown value a new Frame starts with.
	SpindownInitial int
	// SpindownMin and SpindownMax bound every recomputation (spec.md §4.7,
	// §8 invariant 6).
	SpindownMin int
	SpindownMax int
	// SpindownMutationRate is the probability, per batch, that the
	// spindown value is recomputed from the observed follow-up rate, in
	// addition to the unconditional recomputation when spindownScore >= 1.
	SpindownMutationRate float64
	// SpindownTestThreshold and SpindownTestIterations control the ramp
	// added to the mutation coefficient once totalBatches has run long
	// enough (spec.md §4.7).
	SpindownTestThreshold  int
	SpindownTestIterations int
	// SpindownCooldownRate controls the unconditional per-batch decay:
	// spindown -= spindown/SpindownCooldownRate + 1.
	SpindownCooldownRate int
	// BatchEventBudget is consumed by the default pool Scheduler's
	// Scheduler.State as the number of events drained before preemption.
	// It has no meaning to the Frame itself, which only ever asks its
	// Scheduler.State whether to continue - it is listed here because a
	// resolved Config is the natural place for a Scheduler's own knobs to
	// travel alongside the Frame's.
	BatchEventBudget int
}

// DefaultConfig returns reasonable defaults. SpindownInitial, SpindownMin,
// SpindownMax and SpindownCooldownRate match spec.md §8 scenario 6; the
// mutation rate (0.2) and test threshold/iterations (64/256) are gentler
// than that scenario's, and BatchEventBudget is left by spec.md to the
// Scheduler.
func DefaultConfig() Config {
	return Config{
		SpindownInitial:        16,
		SpindownMin:            4,
		SpindownMax:            64,
		SpindownMutationRate:   0.2,
		SpindownTestThreshold:  64,
		SpindownTestIterations: 256,
		SpindownCooldownRate:   4,
		BatchEventBudget:       256,
	}
}

// Validate checks the Config invariants, returning a *ConfigError
// describing the first violation found.
func (c Config) Validate() error {
	switch {
	case c.SpindownMin < 0:
		return &ConfigError{Field: "SpindownMin", Message: "must be >= 0"}
	case c.SpindownMax < c.SpindownMin:
		return &ConfigError{Field: "SpindownMax", Message: "must be >= SpindownMin"}
	case c.SpindownInitial < c.SpindownMin || c.SpindownInitial > c.SpindownMax:
		return &ConfigError{Field: "SpindownInitial", Message: "must be within [SpindownMin, SpindownMax]"}
	case c.SpindownMutationRate < 0 || c.SpindownMutationRate > 1:
		return &ConfigError{Field: "SpindownMutationRate", Message: "must be within [0, 1]"}
	case c.SpindownTestThreshold < 0:
		return &ConfigError{Field: "SpindownTestThreshold", Message: "must be >= 0"}
	case c.SpindownTestIterations < 0:
		return &ConfigError{Field: "SpindownTestIterations", Message: "must be >= 0"}
	case c.SpindownCooldownRate < 1:
		return &ConfigError{Field: "SpindownCooldownRate", Message: "must be >= 1"}
	case c.BatchEventBudget < 1:
		return &ConfigError{Field: "BatchEventBudget", Message: "must be >= 1"}
	}
	return nil
}
