package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reactorcore/reactor"
)

// demoConfig is the YAML document reactordemo loads: a handful of
// reactors to spawn and the Pool scheduler's shape. The Frame core never
// parses configuration itself (spec.md §1 puts that out of scope) - this
// file is the "resolved configuration record" producer spec.md alludes
// to, living entirely in the demo binary.
type demoConfig struct {
	Pool struct {
		Concurrency int `yaml:"concurrency"`
		Workers     int `yaml:"workers"`
	} `yaml:"pool"`
	Reactors []reactorSpec `yaml:"reactors"`
}

type reactorSpec struct {
	Name       string     `yaml:"name"`
	EventCount int        `yaml:"eventCount"`
	Spindown   spindownYAML `yaml:"spindown"`
}

type spindownYAML struct {
	Initial        int     `yaml:"initial"`
	Min            int     `yaml:"min"`
	Max            int     `yaml:"max"`
	MutationRate   float64 `yaml:"mutationRate"`
	TestThreshold  int     `yaml:"testThreshold"`
	TestIterations int     `yaml:"testIterations"`
	CooldownRate   int     `yaml:"cooldownRate"`
	BatchBudget    int     `yaml:"batchBudget"`
}

func loadConfig(path string) (demoConfig, error) {
	var cfg demoConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("reactordemo: open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("reactordemo: parse config: %w", err)
	}
	return cfg, nil
}

// toReactorConfig resolves a spindownYAML block into a reactor.Config,
// falling back to reactor.DefaultConfig for any zero-valued field so a
// YAML document only needs to mention what it wants to override.
func (s spindownYAML) toReactorConfig() reactor.Config {
	cfg := reactor.DefaultConfig()
	if s.Initial != 0 {
		cfg.SpindownInitial = s.Initial
	}
	if s.Min != 0 {
		cfg.SpindownMin = s.Min
	}
	if s.Max != 0 {
		cfg.SpindownMax = s.Max
	}
	if s.MutationRate != 0 {
		cfg.SpindownMutationRate = s.MutationRate
	}
	if s.TestThreshold != 0 {
		cfg.SpindownTestThreshold = s.TestThreshold
	}
	if s.TestIterations != 0 {
		cfg.SpindownTestIterations = s.TestIterations
	}
	if s.CooldownRate != 0 {
		cfg.SpindownCooldownRate = s.CooldownRate
	}
	if s.BatchBudget != 0 {
		cfg.BatchEventBudget = s.BatchBudget
	}
	return cfg
}
