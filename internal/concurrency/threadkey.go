// File: internal/concurrency/threadkey.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread keys: one value per (key, thread) with an optional destructor that
// runs when a managed thread exits still holding a value.

package concurrency

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/momentics/hioload-sync/api"
)

// destructorIterations bounds how often exit processing re-runs when
// destructors store new values on the exiting thread.
const destructorIterations = 4

type threadValues map[*ThreadKey]any

// keyTable holds every thread's values. Destructors always run after the
// table lock has been released.
var keyTable = struct {
	lock    Spinlock
	threads map[ThreadID]threadValues
}{
	threads: make(map[ThreadID]threadValues),
}

// ThreadKey is a process-wide slot with one value per thread.
type ThreadKey struct {
	destructor func(value any)
	deleted    atomic.Bool
}

// NewThreadKey allocates a key. destructor may be nil.
func NewThreadKey(destructor func(value any)) *ThreadKey {
	return &ThreadKey{destructor: destructor}
}

// Get returns the calling thread's value, or nil.
func (k *ThreadKey) Get() any {
	tid := CurrentThreadID()
	keyTable.lock.Lock()
	v := keyTable.threads[tid][k]
	keyTable.lock.Unlock()
	return v
}

// Set stores value for the calling thread. A nil value clears the slot
// without running the destructor.
func (k *ThreadKey) Set(value any) error {
	tid := CurrentThreadID()
	keyTable.lock.Lock()
	defer keyTable.lock.Unlock()
	// Checked under the table lock so release cannot sweep between the check
	// and the store.
	if k.deleted.Load() {
		return errors.Wrap(api.ErrClosed, "thread key deleted")
	}
	vals := keyTable.threads[tid]
	if value == nil {
		if vals != nil {
			delete(vals, k)
			if len(vals) == 0 {
				delete(keyTable.threads, tid)
			}
		}
		return nil
	}
	if vals == nil {
		vals = make(threadValues)
		keyTable.threads[tid] = vals
	}
	vals[k] = value
	return nil
}

// Delete releases the key without running destructors for values still held
// by live threads (POSIX key semantics). Callers that need those values
// cleaned must track them on their own.
func (k *ThreadKey) Delete() {
	k.release()
}

// Free releases the key and runs the destructor for every value still held
// by a live thread (fiber-local storage semantics).
func (k *ThreadKey) Free() {
	for _, v := range k.release() {
		if k.destructor != nil {
			k.destructor(v)
		}
	}
}

func (k *ThreadKey) release() []any {
	keyTable.lock.Lock()
	defer keyTable.lock.Unlock()
	if !k.deleted.CompareAndSwap(false, true) {
		return nil
	}
	var live []any
	for tid, vals := range keyTable.threads {
		if v, ok := vals[k]; ok {
			live = append(live, v)
			delete(vals, k)
			if len(vals) == 0 {
				delete(keyTable.threads, tid)
			}
		}
	}
	return live
}

// runThreadExit runs destructors for every value held by tid.
func runThreadExit(tid ThreadID) {
	for i := 0; i < destructorIterations; i++ {
		keyTable.lock.Lock()
		vals := keyTable.threads[tid]
		delete(keyTable.threads, tid)
		keyTable.lock.Unlock()
		if len(vals) == 0 {
			return
		}
		for k, v := range vals {
			if k.destructor != nil {
				k.destructor(v)
			}
		}
	}
}
