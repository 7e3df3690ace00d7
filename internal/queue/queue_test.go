package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietlog/pkg/errors"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(i))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := New[string]()

	done := make(chan string, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			done <- v
		}
	}()

	select {
	case <-done:
		t.Fatal("pop returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Push("hello"))

	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after push")
	}
}

func TestQueuePopHonoursContext(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClose(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Push(1))
	q.Close()

	err := q.Push(2)
	assert.True(t, errors.IsQueueClosed(err))

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = q.Pop(context.Background())
	assert.True(t, errors.IsQueueClosed(err))
}

func TestQueueCloseWakesBlockedConsumer(t *testing.T) {
	q := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.True(t, errors.IsQueueClosed(err))
	case <-time.After(time.Second):
		t.Fatal("close did not wake the consumer")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(base*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perProducer)
	lastByProducer := make(map[int]int)
	for len(seen) < producers*perProducer {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		seen[v] = true

		p := v / perProducer
		if last, ok := lastByProducer[p]; ok {
			assert.Greater(t, v, last, "per-producer order must be preserved")
		}
		lastByProducer[p] = v
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
