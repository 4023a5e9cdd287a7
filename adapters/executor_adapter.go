// File: adapters/executor_adapter.go
// Package adapters provides glue between the synchronization core and api contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter implements api.Executor on top of a taskpool.ThreadPool and
// one TaskQueue bound to it.

package adapters

import (
	"github.com/pkg/errors"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/taskpool"
)

// ExecutorAdapter wraps a pool and a dedicated queue to satisfy api.Executor.
type ExecutorAdapter struct {
	pool  *taskpool.ThreadPool
	queue *taskpool.TaskQueue
}

var _ api.Executor = (*ExecutorAdapter)(nil)

// NewExecutorAdapter binds a new queue with opts to pool.
func NewExecutorAdapter(pool *taskpool.ThreadPool, opts ...taskpool.QueueOption) (*ExecutorAdapter, error) {
	q, err := taskpool.NewTaskQueue(pool, opts...)
	if err != nil {
		return nil, err
	}
	return &ExecutorAdapter{pool: pool, queue: q}, nil
}

// Submit enqueues task.
func (ea *ExecutorAdapter) Submit(task func()) error {
	if task == nil {
		return errors.Wrap(api.ErrInvalidArgument, "nil task")
	}
	return ea.queue.Push(taskpool.Task{Func: func(any) { task() }})
}

// NumWorkers returns the current number of worker threads.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.pool.ThreadCount()
}

// Resize sets the pool thread count, blocking until removed workers exit.
func (ea *ExecutorAdapter) Resize(newCount int) error {
	return ea.pool.SetThreadCount(newCount)
}

// Wait blocks until every submitted task has completed.
func (ea *ExecutorAdapter) Wait() {
	ea.queue.WaitForTasks()
}

// Queue exposes the underlying queue for batch submission.
func (ea *ExecutorAdapter) Queue() *taskpool.TaskQueue {
	return ea.queue
}

// Close drains outstanding tasks and unbinds the queue from the pool. The
// pool itself stays open.
func (ea *ExecutorAdapter) Close() error {
	ea.queue.WaitForTasks()
	return ea.queue.Close()
}
