package reactor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitClosed(t *testing.T, ch <-chan struct{}, d time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatalf("timed out waiting for %s", msg)
	}
}

// TestFrame_OrderedArrivalsAndTermination implements spec.md §8 scenario 1:
// send 1, 2, 3 into the default connector; the reactor records arrivals in
// order, seals on the third, and terminates exactly once.
func TestFrame_OrderedArrivalsAndTermination(t *testing.T) {
	sys := NewSystem()

	var mu sync.Mutex
	var got []int
	var kinds []EventKind

	f, err := sys.Spawn("scenario1", goroutineScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	f.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

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

	awaitClosed(t, f.terminatedCh, 2*time.Second, "frame termination")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, f.HasTerminated())

	terminatedCount := 0
	for _, k := range kinds {
		if k == ReactorTerminated {
			terminatedCount++
		}
	}
	assert.Equal(t, 1, terminatedCount)
}

// TestFrame_ConcurrentProducers implements spec.md §8 scenario 2 and
// property 1 (isolation): two producer goroutines each send 10,000
// distinct tagged events to the same connector; the reactor serializes
// delivery (single goroutine at a time) and collects all 20,000.
func TestFrame_ConcurrentProducers(t *testing.T) {
	sys := NewSystem()

	var mu sync.Mutex
	var got []string
	var activeCount int
	var maxObservedActive int

	f, err := sys.Spawn("scenario2", goroutineScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	const perProducer = 10000
	done := make(chan struct{})
	var receivedCount int

	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		mu.Lock()
		activeCount++
		if activeCount > maxObservedActive {
			maxObservedActive = activeCount
		}
		mu.Unlock()

		got = appendSafely(&mu, got, event.(string))

		mu.Lock()
		receivedCount++
		n := receivedCount
		activeCount--
		mu.Unlock()

		if n == 2*perProducer {
			close(done)
		}
	})

	var wg sync.WaitGroup
	wg.Add(2)
	for p := 0; p < 2; p++ {
		go func(tag string) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = conn.Channel().Enqueue(fmt.Sprintf("%s-%d", tag, i))
			}
		}(fmt.Sprintf("p%d", p))
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for all events to be delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 2*perProducer)
	assert.Equal(t, 1, maxObservedActive, "isolation violated: handler ran concurrently with itself")

	perProducerOrder := map[string]int{}
	for _, v := range got {
		var tag string
		var idx int
		_, err := fmt.Sscanf(v, "%2s-%d", &tag, &idx)
		require.NoError(t, err)
		if prev, ok := perProducerOrder[tag]; ok {
			assert.Greater(t, idx, prev, "events from %s arrived out of order", tag)
		}
		perProducerOrder[tag] = idx
	}
}

func appendSafely(mu *sync.Mutex, s []string, v string) []string {
	mu.Lock()
	defer mu.Unlock()
	return append(s, v)
}

// TestFrame_DiesOnPanic implements spec.md §8 scenario 3: a throwable
// inside the first event handler forces termination and emits exactly
// ReactorStarted, ReactorScheduled, ReactorDied, ReactorTerminated (no
// ReactorPreempted), and releases the registry slot.
func TestFrame_DiesOnPanic(t *testing.T) {
	sys := NewSystem()

	var mu sync.Mutex
	var kinds []EventKind

	f, err := sys.Spawn("scenario3", goroutineScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	f.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		panic("boom")
	})

	require.NoError(t, conn.Channel().Enqueue(1))

	awaitClosed(t, f.terminatedCh, 2*time.Second, "frame termination after panic")

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(kinds), 4)
	assert.Equal(t, ReactorStarted, kinds[0])
	assert.Equal(t, ReactorScheduled, kinds[1])
	assert.Equal(t, ReactorDied, kinds[2])
	assert.Equal(t, ReactorTerminated, kinds[3])
	for _, k := range kinds {
		assert.NotEqual(t, ReactorPreempted, k)
	}

	_, ok := sys.Frame("scenario3")
	assert.False(t, ok, "registry slot should have been released")
}

// TestFrame_TerminatedRejectsFurtherWork exercises spec.md §8 property 5:
// once Terminated, Enqueue is rejected with FrameTerminatedError (so it
// cannot schedule a batch), and so is OpenConnector.
func TestFrame_TerminatedRejectsFurtherWork(t *testing.T) {
	sys := NewSystem()

	f, err := sys.Spawn("scenario5-term", goroutineScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		f.SealConnector(conn)
	})
	require.NoError(t, conn.Channel().Enqueue(1))
	awaitClosed(t, f.terminatedCh, 2*time.Second, "termination")

	err = conn.Channel().Enqueue(2)
	require.Error(t, err)
	assert.IsType(t, &FrameTerminatedError{}, err)

	_, err = f.OpenConnector(ConnectorOptions{Name: "late"})
	require.Error(t, err)
	assert.IsType(t, &FrameTerminatedError{}, err)
}

// TestFrame_NestedExecutionRejected exercises the documented guard: an
// ExecuteBatch call from a goroutine already inside a batch must fail.
func TestFrame_NestedExecutionRejected(t *testing.T) {
	sys := NewSystem()

	var inner *Frame
	var innerErr error

	f, err := sys.Spawn("nest-outer", &manualScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	g, err := sys.Spawn("nest-inner", &manualScheduler{}, DefaultConfig(), func(f *Frame) (any, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)
	inner = g

	conn := f.DefaultConnector()
	conn.SetHandler(func(event any) {
		innerErr = inner.ExecuteBatch()
	})
	require.NoError(t, conn.Channel().Enqueue(1))
	require.NoError(t, f.ExecuteBatch())

	require.Error(t, innerErr)
	assert.IsType(t, &NestedExecutionError{}, innerErr)
}
