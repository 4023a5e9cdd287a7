// File: internal/concurrency/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Managed OS threads. A managed thread is a goroutine locked to its OS thread
// for its whole life; when it returns, thread-key destructors run for every
// value it still holds and the runtime retires the OS thread.

package concurrency

import "runtime"

// ThreadID identifies an OS thread (or the locked goroutine standing in for
// one on platforms without a thread id syscall).
type ThreadID uint64

// CurrentThreadID returns the identity of the calling thread. The result is
// only stable if the caller is locked to its OS thread.
func CurrentThreadID() ThreadID {
	return platformThreadID()
}

// Thread is a handle to a managed thread started by Go.
type Thread struct {
	id      ThreadID
	started chan struct{}
	done    chan struct{}
}

// Go starts fn on a new managed thread and returns once the thread is
// running and its ID is known.
func Go(fn func()) *Thread {
	t := &Thread{
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.run(fn)
	<-t.started
	return t
}

func (t *Thread) run(fn func()) {
	// Never unlocked: the runtime terminates the OS thread when a locked
	// goroutine exits, which is the thread exit observed by destructors.
	runtime.LockOSThread()
	t.id = CurrentThreadID()
	close(t.started)

	defer close(t.done)
	defer runThreadExit(t.id)
	fn()
}

// ID returns the OS thread identity.
func (t *Thread) ID() ThreadID { return t.id }

// Join blocks until the thread has exited and its destructors have run.
func (t *Thread) Join() { <-t.done }

// Done is closed once the thread has exited and its destructors have run.
func (t *Thread) Done() <-chan struct{} { return t.done }
