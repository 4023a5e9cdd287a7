// File: taskpool/taskqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskQueue is a FIFO of work items executed by the workers of one ThreadPool.
// Several queues may share a pool; workers serve runnable queues round robin,
// which is best effort and gives no fairness guarantee between queues.

package taskpool

import (
	"github.com/eapache/queue"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-sync/api"
)

// TaskFunc is the body of a task.
type TaskFunc func(arg any)

// Task is one unit of work: a function and its argument.
type Task struct {
	Func TaskFunc
	Arg  any
}

// TaskQueue holds pending tasks. All state is guarded by the pool mutex.
type TaskQueue struct {
	pool           *ThreadPool
	tasks          *queue.Queue
	maxTasks       int
	maxConcurrency int

	pending   int // queued plus executing
	executing int
	waiters   int
	scheduled bool // listed on the pool ready list
	closed    bool

	// dequeued, when set, observes every task as it leaves the queue. It runs
	// under the pool mutex and must not block.
	dequeued func(Task)
}

// NewTaskQueue binds a new queue to pool.
func NewTaskQueue(pool *ThreadPool, opts ...QueueOption) (*TaskQueue, error) {
	if pool == nil {
		return nil, errors.Wrap(api.ErrInvalidArgument, "nil thread pool")
	}
	var o queueOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxTasks < 0 || o.maxConcurrency < 0 {
		return nil, errors.Wrapf(api.ErrInvalidArgument, "negative limits max_tasks=%d max_concurrency=%d", o.maxTasks, o.maxConcurrency)
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.closed {
		return nil, errors.Wrap(api.ErrClosed, "thread pool closed")
	}
	pool.queues++
	return &TaskQueue{
		pool:           pool,
		tasks:          queue.New(),
		maxTasks:       o.maxTasks,
		maxConcurrency: o.maxConcurrency,
	}, nil
}

// Push enqueues one task and wakes an idle worker.
func (q *TaskQueue) Push(task Task) error {
	return q.PushBatch([]Task{task})
}

// PushBatch enqueues tasks in order and wakes up to len(tasks) idle workers.
// Either every task is enqueued or none is.
func (q *TaskQueue) PushBatch(tasks []Task) error {
	for i := range tasks {
		if tasks[i].Func == nil {
			return errors.Wrapf(api.ErrInvalidArgument, "task %d has nil function", i)
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	p := q.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if q.closed {
		return errors.Wrap(api.ErrClosed, "task queue closed")
	}
	if q.maxTasks > 0 && q.tasks.Length()+len(tasks) > q.maxTasks {
		return errors.Wrapf(api.ErrResourceExhausted, "queue holds %d of %d tasks, cannot add %d", q.tasks.Length(), q.maxTasks, len(tasks))
	}
	for _, t := range tasks {
		q.tasks.Add(t)
	}
	q.pending += len(tasks)
	p.scheduleLocked(q)
	for i := 0; i < len(tasks) && i < p.target; i++ {
		p.work.Signal()
	}
	return nil
}

// Len returns the number of tasks not yet started.
func (q *TaskQueue) Len() int {
	q.pool.mu.Lock()
	defer q.pool.mu.Unlock()
	return q.tasks.Length()
}

// WaitForTasks blocks until every pushed task has finished. When the pool
// has no threads, or the caller is itself a worker of the pool, the caller
// runs pending tasks serially in FIFO order instead of waiting for workers
// that would never come.
func (q *TaskQueue) WaitForTasks() {
	p := q.pool
	helper := p.isWorkerThread()

	p.mu.Lock()
	defer p.mu.Unlock()
	for q.pending > 0 {
		if p.target == 0 || helper {
			if task, ok := q.takeLocked(); ok {
				p.mu.Unlock()
				p.execute(task)
				p.mu.Lock()
				p.finishLocked(q)
				continue
			}
		}
		q.waiters++
		p.drained.Wait()
		q.waiters--
	}
}

// Close unbinds the queue from its pool. Pending tasks are never dropped:
// closing a queue that still holds work fails with ErrBusy.
func (q *TaskQueue) Close() error {
	p := q.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if q.closed {
		return errors.Wrap(api.ErrClosed, "task queue closed")
	}
	if q.pending > 0 {
		return errors.Wrapf(api.ErrBusy, "task queue has %d pending tasks", q.pending)
	}
	q.closed = true
	p.queues--
	return nil
}

func (q *TaskQueue) runnableLocked() bool {
	if q.tasks.Length() == 0 {
		return false
	}
	return q.maxConcurrency == 0 || q.executing < q.maxConcurrency
}

// takeLocked dequeues the oldest task if the concurrency limit allows it.
func (q *TaskQueue) takeLocked() (Task, bool) {
	if !q.runnableLocked() {
		return Task{}, false
	}
	q.executing++
	task := q.tasks.Remove().(Task)
	if q.dequeued != nil {
		q.dequeued(task)
	}
	return task, true
}
