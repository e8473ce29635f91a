package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	handled []string
	failFor map[string]int
}

func (r *recorder) handle(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remaining := r.failFor[job.ID]; remaining > 0 {
		r.failFor[job.ID] = remaining - 1
		return errors.New("transient failure")
	}
	r.handled = append(r.handled, job.ID)
	return nil
}

func (r *recorder) handledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}

func TestQueueProcessesJobs(t *testing.T) {
	rec := &recorder{}
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))

	assert.Eventually(t, func() bool {
		return rec.handledCount() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueDeduplicatesInFlightIDs(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	err := q.Enqueue(Job{ID: "job-1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	close(release)
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	rec := &recorder{failFor: map[string]int{"job-1": 2}}
	q := NewQueue("test", rec.handle, QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	assert.Eventually(t, func() bool {
		return rec.handledCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The pending slot is reclaimed once the job finally succeeds.
	assert.Eventually(t, func() bool {
		return q.Enqueue(Job{ID: "job-1"}) == nil
	}, 2*time.Second, 10*time.Millisecond)
}
