package inmemory

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/google/uuid"
)

// Queue is an in-memory delayed job queue. Jobs are held in a min-heap keyed
// by VisibleAt and handed to the handler by a single consumer goroutine once
// they become due. Each job is attempted exactly once. Pending jobs are lost
// when the process stops.
type Queue struct {
	mu        sync.Mutex
	pending   jobHeap
	store     jobs.JobStore
	clock     Clock
	wake      chan struct{}
	closeChan chan struct{}
	wg        sync.WaitGroup
	closed    bool
	started   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// NewQueue creates a new in-memory delayed job queue. store may be nil.
func NewQueue(store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		store:     store,
		clock:     systemClock{},
		wake:      make(chan struct{}, 1),
		closeChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishDeleteArtifact implements the Publisher interface. It returns as soon
// as the job is recorded; it never waits for the job to become visible.
func (q *Queue) PublishDeleteArtifact(ctx context.Context, job *jobs.DeleteArtifactJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("PublishDeleteArtifact: queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.clock.Now()
	}
	if job.VisibleAt.IsZero() {
		job.VisibleAt = job.CreatedAt
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			q.mu.Unlock()
			return fmt.Errorf("PublishDeleteArtifact: failed to save job: %w", err)
		}
	}

	jobCopy := *job
	heap.Push(&q.pending, &jobCopy)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of jobs that have not been handed to a handler yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Start implements the Consumer interface. It launches the consumer loop.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("Start: queue is closed")
	}
	if q.started {
		return fmt.Errorf("Start: queue already started")
	}
	q.started = true

	q.wg.Add(1)
	go q.loop(ctx, handler)

	return nil
}

func (q *Queue) loop(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		var timer <-chan time.Time
		if delay, ok := q.nextDelay(); ok {
			if delay <= 0 {
				q.RunDue(ctx, handler)
				continue
			}
			timer = q.clock.After(delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case <-q.wake:
		case <-timer:
			q.RunDue(ctx, handler)
		}
	}
}

// nextDelay returns how long until the earliest pending job is due.
func (q *Queue) nextDelay() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Len() == 0 {
		return 0, false
	}
	return q.pending[0].VisibleAt.Sub(q.clock.Now()), true
}

// RunDue synchronously processes every job whose visibility time has passed
// and returns how many were handled.
func (q *Queue) RunDue(ctx context.Context, handler jobs.JobHandler) int {
	n := 0
	for {
		job := q.popDue()
		if job == nil {
			return n
		}
		q.processJob(ctx, job, handler)
		n++
	}
}

func (q *Queue) popDue() *jobs.DeleteArtifactJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Len() == 0 || q.pending[0].VisibleAt.After(q.clock.Now()) {
		return nil
	}
	return heap.Pop(&q.pending).(*jobs.DeleteArtifactJob)
}

// processJob executes a single job. Failures are recorded, never retried.
func (q *Queue) processJob(ctx context.Context, job *jobs.DeleteArtifactJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := q.clock.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := q.invoke(ctx, job, handler)

	completedAt := q.clock.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

func (q *Queue) invoke(ctx context.Context, job *jobs.DeleteArtifactJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Stop implements the Consumer interface. It waits for the in-flight job and
// drops the jobs that are still pending.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// jobHeap orders jobs by VisibleAt, then CreatedAt.
type jobHeap []*jobs.DeleteArtifactJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].VisibleAt.Equal(h[j].VisibleAt) {
		return h[i].CreatedAt.Before(h[j].CreatedAt)
	}
	return h[i].VisibleAt.Before(h[j].VisibleAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*jobs.DeleteArtifactJob)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
