package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
	"github.com/custodia-labs/dossier-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval between pending-task scans while a dequeue is waiting
const pollInterval = 100 * time.Millisecond

// Queue is an in-process TaskQueue for single-binary deployments
// without Redis. Tasks do not survive a restart; callers that need
// durability should use the Redis queue.
type Queue struct {
	mu       sync.Mutex
	pending  []*domain.Task
	inflight map[string]*domain.Task
	closed   bool
}

// NewQueue creates a new in-process task queue
func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[string]*domain.Task),
	}
}

// Enqueue adds a task to the queue for processing
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue is closed")
	}
	q.pending = append(q.pending, task)
	return nil
}

// Dequeue retrieves the next available task, blocking until one is
// ready or the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	for {
		task, err := q.tryDequeue()
		if err != nil || task != nil {
			return task, err
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(pollInterval):
		}
	}
}

// DequeueWithTimeout retrieves the next available task, waiting up to
// timeout seconds. Returns nil, nil when nothing becomes ready.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if timeout <= 0 {
		return q.Dequeue(ctx)
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		task, err := q.tryDequeue()
		if err != nil || task != nil {
			return task, err
		}

		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(pollInterval):
		}
	}
}

// tryDequeue pops the first due pending task, if any
func (q *Queue) tryDequeue() (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, errors.New("queue is closed")
	}

	now := time.Now()
	for i, task := range q.pending {
		if task.ScheduledFor.After(now) {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		task.MarkProcessing()
		q.inflight[task.ID] = task
		return task, nil
	}
	return nil, nil
}

// Ack acknowledges successful completion of a task
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.inflight[taskID]
	if !ok {
		return errors.New("task not in flight")
	}
	task.MarkCompleted()
	delete(q.inflight, taskID)
	return nil
}

// Nack returns a failed task to the queue for retry, or marks it
// failed once retries are exhausted.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.inflight[taskID]
	if !ok {
		return errors.New("task not in flight")
	}
	delete(q.inflight, taskID)

	if task.CanRetry() {
		task.Retry(reason)
		q.pending = append(q.pending, task)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

// Ping reports queue health; an in-process queue is healthy unless closed
func (q *Queue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue is closed")
	}
	return nil
}

// Close shuts the queue down
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
	return nil
}

// Pending returns the number of tasks waiting to be processed
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
