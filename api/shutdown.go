// File: api/shutdown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown tears down a runtime in dependency order: the default
// task queue is drained and closed, then the thread pool joins its workers,
// then the name registry is released if the runtime initialized it.
type GracefulShutdown interface {
	// Shutdown returns ErrBusy while queues other than the default one are
	// still bound to the pool; the call may be retried once they are closed.
	// Repeated calls after a successful shutdown return nil.
	Shutdown() error
}
