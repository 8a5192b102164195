package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFOOrder(t *testing.T) {
	q := New[int]()

	for i := 1; i <= 3; i++ {
		size, ok := q.Enqueue(i)
		require.True(t, ok)
		assert.Equal(t, i, size)
	}

	var got []int
	for {
		x, remaining, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, x)
		assert.Equal(t, 3-len(got), remaining)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestEventQueue_DequeueEmpty(t *testing.T) {
	q := New[string]()
	_, remaining, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
}

func TestEventQueue_SpansMultipleChunks(t *testing.T) {
	q := New[int]()
	const n = chunkSize*3 + 7
	for i := 0; i < n; i++ {
		_, ok := q.Enqueue(i)
		require.True(t, ok)
	}
	for i := 0; i < n; i++ {
		x, _, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, x)
	}
	_, _, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestEventQueue_UnreactRejectsEnqueue(t *testing.T) {
	q := New[int]()
	_, ok := q.Enqueue(1)
	require.True(t, ok)

	var fired int
	q.OnUnreact(func() { fired++ })

	q.Unreact()
	q.Unreact() // idempotent
	assert.Equal(t, 1, fired)
	assert.True(t, q.IsSealed())

	_, ok = q.Enqueue(2)
	assert.False(t, ok)
}

func TestEventQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers = 10
	const perProducer = 10000

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base + i)
			}
		}(p * perProducer)
	}
	wg.Wait()

	count := 0
	for {
		_, _, ok := q.Dequeue()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
