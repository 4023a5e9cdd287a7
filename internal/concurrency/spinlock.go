// File: internal/concurrency/spinlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Busy-wait mutual exclusion for short, low-contention critical sections.

package concurrency

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sys/cpu"
)

const maxSpinBackoff = 16

// Spinlock is a CAS lock that yields the processor with exponential backoff
// while contended. The zero value is unlocked. Hold times must stay short and
// must never include blocking calls or I/O.
type Spinlock struct {
	_     cpu.CacheLinePad
	state atomic.Uint32
	_     cpu.CacheLinePad
}

var _ sync.Locker = (*Spinlock)(nil)

// Lock acquires the lock, spinning until it is free.
func (s *Spinlock) Lock() {
	backoff := 1
	for !s.state.CompareAndSwap(0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxSpinBackoff {
			backoff <<= 1
		}
	}
}

// TryLock acquires the lock without spinning and reports success.
func (s *Spinlock) TryLock() bool {
	return s.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Unlocking an unlocked Spinlock panics.
func (s *Spinlock) Unlock() {
	if !s.state.CompareAndSwap(1, 0) {
		panic("concurrency: unlock of unlocked spinlock")
	}
}
