package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "audit"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to completion")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	assert.False(t, q.Started())
	assert.Error(t, q.Enqueue(Job{ID: "a"}))
	assert.Error(t, q.TryEnqueue(Job{ID: "a"}))
}

func TestQueueTryEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	var full bool
	for i := 0; i < 3; i++ {
		if errors.Is(q.TryEnqueue(Job{ID: "x"}), ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
}

func TestQueueStopFlushesBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var handled int32
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		if job.ID == "first" {
			<-release
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{ID: "first"}))
	for i := 0; i < 4; i++ {
		require.NoError(t, q.TryEnqueue(Job{ID: "buffered"}))
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "late"}), ErrQueueClosed)
	assert.False(t, q.Started())
}
