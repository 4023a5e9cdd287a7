// Package api
// Author: momentics
//
// Executor contract for parallel task dispatch on managed worker threads.

package api

// Executor abstracts parallel task execution.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker threads.
	NumWorkers() int

	// Resize adjusts the concurrency at runtime. It blocks until
	// removed workers have exited.
	Resize(newCount int) error

	// Wait blocks until every submitted task has completed.
	Wait()
}
