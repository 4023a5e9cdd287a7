// File: threadlocal/registry.go
// Package threadlocal caches one caller-defined object per thread and
// guarantees the object is cleaned exactly once.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A thread here is a goroutine locked to its OS thread: taskpool workers and
// anything started with the internal thread launcher qualify, as does a
// goroutine that called runtime.LockOSThread (whose objects are then only
// cleaned by Destroy, since no exit notification exists for it).

package threadlocal

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/internal/concurrency"
)

// CleanupFunc destroys an object owned by the registry.
type CleanupFunc func(obj any)

// node is the per-thread slot stored under the registry's thread key.
type node struct {
	obj any

	// tracked back end list links, guarded by the back end spinlock
	prev, next *node
	linked     bool
}

// Registry holds at most one object per thread.
type Registry struct {
	cleanup   CleanupFunc
	key       *concurrency.ThreadKey
	backend   backend
	destroyed atomic.Bool
	nodes     atomic.Int64
}

// New creates a registry whose objects are destroyed with cleanup.
func New(cleanup CleanupFunc) (*Registry, error) {
	return newRegistry(cleanup, newBackend())
}

func newRegistry(cleanup CleanupFunc, b backend) (*Registry, error) {
	if cleanup == nil {
		return nil, errors.Wrap(api.ErrInvalidArgument, "nil cleanup function")
	}
	r := &Registry{cleanup: cleanup, backend: b}
	r.key = concurrency.NewThreadKey(r.threadExit)
	return r, nil
}

// Backend names the live-node strategy compiled into this build.
func (r *Registry) Backend() string { return r.backend.name() }

// Threads returns the number of threads currently holding a slot.
func (r *Registry) Threads() int { return int(r.nodes.Load()) }

// Get returns the calling thread's object, or nil. It never allocates.
func (r *Registry) Get() any {
	if n := r.current(); n != nil {
		return n.obj
	}
	return nil
}

// Set stores obj for the calling thread. A different object already stored
// is cleaned first; storing the same object again is a no-op.
func (r *Registry) Set(obj any) error {
	if r.destroyed.Load() {
		return errors.Wrap(api.ErrClosed, "thread-local registry destroyed")
	}
	n := r.current()
	if n == nil {
		if obj == nil {
			return nil
		}
		n = &node{}
		r.backend.attach(n)
		if err := r.key.Set(n); err != nil {
			r.backend.detach(n)
			return err
		}
		r.nodes.Inc()
	}
	old := n.obj
	n.obj = obj
	if old != nil && !sameObject(old, obj) {
		r.cleanup(old)
	}
	return nil
}

// Take returns the calling thread's object and clears the slot without
// running cleanup: ownership passes to the caller.
func (r *Registry) Take() any {
	n := r.current()
	if n == nil {
		return nil
	}
	obj := n.obj
	n.obj = nil
	return obj
}

// Destroy releases the registry. Objects of threads that are still alive
// are cleaned synchronously. No other thread may use the registry while
// Destroy runs.
func (r *Registry) Destroy() error {
	if !r.destroyed.CompareAndSwap(false, true) {
		return errors.Wrap(api.ErrClosed, "thread-local registry destroyed")
	}
	for _, n := range r.backend.release(r.key) {
		r.cleanNode(n)
	}
	return nil
}

func (r *Registry) current() *node {
	n, _ := r.key.Get().(*node)
	return n
}

// threadExit is the thread key destructor.
func (r *Registry) threadExit(v any) {
	n := v.(*node)
	if !r.backend.detach(n) {
		return
	}
	r.cleanNode(n)
}

func (r *Registry) cleanNode(n *node) {
	r.nodes.Dec()
	obj := n.obj
	n.obj = nil
	if obj != nil {
		r.cleanup(obj)
	}
}

// sameObject compares two stored objects, treating incomparable dynamic
// types as different.
func sameObject(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
