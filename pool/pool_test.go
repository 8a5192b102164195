package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactorcore/reactor"
)

func TestPool_DrivesFrameToCompletion(t *testing.T) {
	p := New(2, 2)
	defer p.Close()

	sys := reactor.NewSystem()
	f, err := sys.Spawn("pool-basic", p, reactor.DefaultConfig(), func(f *reactor.Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int
	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		mu.Lock()
		got = append(got, event.(int))
		n := len(got)
		mu.Unlock()
		if n == 3 {
			f.SealConnector(conn)
		}
	})

	for _, v := range []int{1, 2, 3} {
		require.NoError(t, conn.Channel().Enqueue(v))
	}

	done := make(chan struct{})
	go func() {
		f.AwaitTerminated(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame termination via pool")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPool_BudgetPreempts(t *testing.T) {
	p := New(1, 1)
	defer p.Close()

	sys := reactor.NewSystem()
	cfg := reactor.DefaultConfig()
	cfg.BatchEventBudget = 1

	f, err := sys.Spawn("pool-budget", p, cfg, func(f *reactor.Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n == 5 {
			f.SealConnector(conn)
		}
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.Channel().Enqueue(i))
	}

	done := make(chan struct{})
	go func() {
		f.AwaitTerminated(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for budget-preempted frame to finish")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}
