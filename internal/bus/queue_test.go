package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePreservesProducerOrder(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		item, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

func TestQueuePushNeverBlocks(t *testing.T) {
	q := NewQueue[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nothing consumes; every push must still return.
		for i := 0; i < 10000; i++ {
			q.Push(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("push blocked on a full queue")
	}
	assert.Equal(t, 10000, q.Len())
}

func TestQueuePopSuspendsUntilPush(t *testing.T) {
	q := NewQueue[string]()

	got := make(chan string, 1)
	go func() {
		item, ok := q.Pop(context.Background())
		if ok {
			got <- item
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("hello")

	select {
	case item := <-got:
		assert.Equal(t, "hello", item)
	case <-time.After(5 * time.Second):
		t.Fatal("pop never woke up")
	}
}

func TestQueuePopHonorsContextCancel(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("pop did not observe cancellation")
	}
}

func TestQueueCloseDrainsBeforeReportingClosed(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	ctx := context.Background()
	item, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, item)

	item, ok = q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, item)

	_, ok = q.Pop(ctx)
	assert.False(t, ok)

	// Pushing after close is a no-op.
	q.Push(3)
	assert.Equal(t, 0, q.Len())
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	ctx := context.Background()
	for i := 0; i < producers*perProducer; i++ {
		item, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.False(t, seen[item], "duplicate item %d", item)
		seen[item] = true
	}

	wg.Wait()
	assert.Len(t, seen, producers*perProducer)
}
