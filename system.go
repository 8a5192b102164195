package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/reactorcore/reactor/rlog"
)

// DebugAPI is the optional observation hook spec.md §6 grants a System:
// reactorStarted fires once a Frame's reactor value has been constructed
// (Fresh -> Running), reactorTerminated fires once a Frame has reached
// Terminated, just before its registry slot is released. Panics and errors from these
// callbacks are swallowed by the Frame core - they are diagnostics, never
// allowed to affect scheduling outcomes.
type DebugAPI interface {
	ReactorStarted(f *Frame)
	ReactorTerminated(reactor any)
}

type noopDebugAPI struct{}

func (noopDebugAPI) ReactorStarted(*Frame) {}
func (noopDebugAPI) ReactorTerminated(any) {}

// ReactorFactory constructs the user-defined reactor value for a Frame,
// called exactly once, the first time that Frame is ever executed. An
// error return is treated identically to a panic escaping the reactor's
// own handlers: the Frame dies without completing construction.
type ReactorFactory func(f *Frame) (any, error)

// SystemOption configures a System at construction, mirroring the
// teacher's functional-options idiom (eventloop/options.go).
type SystemOption interface {
	apply(*System)
}

type systemOptionFunc func(*System)

func (f systemOptionFunc) apply(sys *System) { f(sys) }

// WithDebugAPI installs a DebugAPI; the default is a no-op.
func WithDebugAPI(api DebugAPI) SystemOption {
	return systemOptionFunc(func(sys *System) {
		if api != nil {
			sys.debug = api
		}
	})
}

// WithLogger installs an rlog.Logger; the default discards everything.
func WithLogger(log rlog.Logger) SystemOption {
	return systemOptionFunc(func(sys *System) {
		if log != nil {
			sys.log = log
		}
	})
}

// System owns the shared Frame registry and is the factory for Frames.
// One process may host multiple independent Systems; Frames in different
// Systems never contend for the same registry slots.
type System struct {
	registry  *registry
	idCounter atomic.Uint64
	debug     DebugAPI
	log       rlog.Logger

	// executing tracks, per goroutine ID, the name of the Frame currently
	// executing a batch on it - spec.md's nested-execution guard (a
	// goroutine may not reenter ExecuteBatch, for this Frame or any
	// other, while already inside one).
	executing sync.Map
}

// NewSystem constructs a System ready to Spawn Frames.
func NewSystem(opts ...SystemOption) *System {
	sys := &System{
		registry: newRegistry(),
		debug:    noopDebugAPI{},
		log:      rlog.Discard(),
	}
	for _, opt := range opts {
		opt.apply(sys)
	}
	return sys
}

// Spawn registers and constructs a new Frame named name (a random UUID if
// name is empty), bound to scheduler, governed by cfg, whose reactor
// value will be built by proto on first execution. It opens the Frame's
// default and internal Connectors and performs the initial Activate that
// bootstraps Fresh -> Running construction, per spec.md §4.4's bootstrap
// note.
//
// Spawn fails if cfg is invalid, or if name is already registered to a
// live Frame.
func (sys *System) Spawn(name string, scheduler Scheduler, cfg Config, proto ReactorFactory) (*Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if proto == nil {
		return nil, &ConfigError{Field: "proto", Message: "must not be nil"}
	}
	if name == "" {
		name = uuid.NewString()
	}

	f := &Frame{
		uid:          sys.idCounter.Add(1),
		sys:          sys,
		proto:        proto,
		scheduler:    scheduler,
		name:         name,
		cfg:          cfg,
		log:          sys.log,
		state:        newLifecycle(),
		sysEmitter:   newEmitter(),
		terminatedCh: make(chan struct{}),
	}
	f.spindown = newSpindownState(cfg, int64(f.uid)*2654435761+1)

	for {
		info := sys.registry.forName(name)
		if !info.isEmpty() && info.frame != nil {
			return nil, fmt.Errorf("reactor: frame name %q already registered", name)
		}
		next := &registryInfo{frame: f, connectors: info.connectors}
		if sys.registry.tryReplace(name, info, next) {
			break
		}
	}

	def, err := f.OpenConnector(ConnectorOptions{Name: "default"})
	if err != nil {
		return nil, err
	}
	internal, err := f.OpenConnector(ConnectorOptions{Name: "internal", IsDaemon: true})
	if err != nil {
		return nil, err
	}
	f.defaultConnector = def
	f.internalConnector = internal

	f.Activate(true)

	return f, nil
}

// Frame looks up a live Frame by name, returning (nil, false) if no Frame
// is currently registered under that name.
func (sys *System) Frame(name string) (*Frame, bool) {
	info := sys.registry.forName(name)
	if info.isEmpty() || info.frame == nil {
		return nil, false
	}
	return info.frame, true
}

func (sys *System) safeDebugStarted(f *Frame) {
	defer func() { _ = recover() }()
	sys.debug.ReactorStarted(f)
}

func (sys *System) safeDebugTerminated(reactor any) {
	defer func() { _ = recover() }()
	sys.debug.ReactorTerminated(reactor)
}
