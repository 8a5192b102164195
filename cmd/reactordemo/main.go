// Command reactordemo spawns a handful of reactor.Frame instances from a
// YAML config, feeds each a burst of integer events through its default
// connector, and logs lifecycle transitions until every Frame terminates.
// It exists to exercise the reactor/pool Scheduler and reactor/rlog
// logging end to end, not as a library entry point.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reactorcore/reactor"
	"github.com/reactorcore/reactor/pool"
	"github.com/reactorcore/reactor/rlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reactordemo:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a reactordemo YAML config (optional)")
	flag.Parse()

	cfg := defaultDemoConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := rlog.Default()
	concurrency := cfg.Pool.Concurrency
	if concurrency < 1 {
		concurrency = 2
	}
	workers := cfg.Pool.Workers
	if workers < 1 {
		workers = concurrency
	}

	p := pool.New(concurrency, workers, pool.WithLogger(log))
	defer p.Close()

	debug := &runLogger{log: log}
	sys := reactor.NewSystem(reactor.WithLogger(log), reactor.WithDebugAPI(debug))

	var wg sync.WaitGroup
	for _, spec := range cfg.Reactors {
		spec := spec
		name := spec.Name
		if name == "" {
			name = uuid.NewString()
		}

		frameCfg := spec.Spindown.toReactorConfig()
		f, err := sys.Spawn(name, p, frameCfg, newCounterReactor)
		if err != nil {
			return fmt.Errorf("spawn %q: %w", name, err)
		}

		wg.Add(1)
		go func(f *reactor.Frame, total int) {
			defer wg.Done()
			conn := f.DefaultConnector()
			feedAndAwait(f, conn, total)
		}(f, spec.EventCount)
	}

	wg.Wait()
	log.Infof("all reactors terminated")
	return nil
}

// counterReactor is the demo's trivial reactor: it counts events on the
// default connector and seals it once `total` have arrived, captured in
// the handler closure installed by feedAndAwait.
type counterReactor struct {
	count int
}

func newCounterReactor(f *reactor.Frame) (any, error) {
	return &counterReactor{}, nil
}

func feedAndAwait(f *reactor.Frame, conn *reactor.Connector, total int) {
	if total <= 0 {
		total = 10
	}
	done := make(chan struct{})
	conn.SetHandler(func(event any) {
		cr := f.Reactor().(*counterReactor)
		cr.count++
		if cr.count >= total {
			f.SealConnector(conn)
			close(done)
		}
	})

	go func() {
		for i := 0; i < total; i++ {
			_ = conn.Channel().Enqueue(i)
			time.Sleep(time.Millisecond)
		}
	}()

	<-done
	f.AwaitTerminated(nil)
}

// runLogger adapts rlog.Logger to reactor.DebugAPI, logging every
// construction and termination - a tiny demo-only consumer of the debug
// hook spec.md §6 reserves for diagnostics.
type runLogger struct {
	log rlog.Logger
}

func (r *runLogger) ReactorStarted(f *reactor.Frame) {
	r.log.Infof("reactor %q started", f.Name())
}

func (r *runLogger) ReactorTerminated(reactor any) {
	r.log.Infof("reactor terminated: %#v", reactor)
}

func defaultDemoConfig() demoConfig {
	var cfg demoConfig
	cfg.Pool.Concurrency = 2
	cfg.Pool.Workers = 2
	cfg.Reactors = []reactorSpec{
		{Name: "alpha", EventCount: 20},
		{Name: "beta", EventCount: 50},
	}
	return cfg
}
