package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalanapp/dalan-go/internal/errors"
)

func TestEnqueueAndLen(t *testing.T) {
	q := NewQueue(4, nil)

	require.NoError(t, q.Enqueue(Job{EntryID: "e1"}))
	require.NoError(t, q.Enqueue(Job{EntryID: "e2"}))
	assert.Equal(t, 2, q.Len())
}

func TestEnqueueFullQueue(t *testing.T) {
	q := NewQueue(1, nil)

	require.NoError(t, q.Enqueue(Job{EntryID: "e1"}))
	err := q.Enqueue(Job{EntryID: "e2"})
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, errors.CategoryJobQueue, enhanced.Category)
}

func TestConsumerProcessesJobs(t *testing.T) {
	q := NewQueue(8, nil)

	var mu sync.Mutex
	processed := make(map[string]bool)
	done := make(chan struct{}, 8)

	handler := HandlerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		processed[job.EntryID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumer(q, handler, 2, nil)
	consumer.Start(ctx)

	require.NoError(t, q.Enqueue(Job{EntryID: "e1"}))
	require.NoError(t, q.Enqueue(Job{EntryID: "e2"}))
	require.NoError(t, q.Enqueue(Job{EntryID: "e3"}))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, processed, 3)
}

func TestConsumerSkipsDeletedEntries(t *testing.T) {
	q := NewQueue(4, nil)
	done := make(chan error, 1)

	handler := HandlerFunc(func(_ context.Context, job Job) error {
		err := errors.New(errors.ErrNotFound).
			Component("entries").
			Category(errors.CategoryNotFound).
			Build()
		done <- err
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumer(q, handler, 1, nil)
	consumer.Start(ctx)

	require.NoError(t, q.Enqueue(Job{EntryID: "gone"}))

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestConsumerStopsOnCancel(t *testing.T) {
	q := NewQueue(4, nil)
	handler := HandlerFunc(func(_ context.Context, _ Job) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewConsumer(q, handler, 2, nil)
	consumer.Start(ctx)

	cancel()

	finished := make(chan struct{})
	go func() {
		consumer.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not exit after cancellation")
	}
}
