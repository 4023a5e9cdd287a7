// File: rwlock/rwlock.go
// Package rwlock provides a shared/exclusive lock built from a mutex and a
// condition variable, with non-blocking variants and misuse reporting.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readers and writers share one condition variable. Admission order is
// unspecified and neither side is protected from starvation.

package rwlock

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-sync/api"
)

var errNilLock = errors.Wrap(api.ErrInvalidArgument, "nil read/write lock")

// RWLock is a named reader/writer lock. Invariants: writeCount is 0 or 1,
// and readCount > 0 implies writeCount == 0.
type RWLock struct {
	name       string
	mu         sync.Mutex
	cond       *sync.Cond
	readCount  int
	writeCount int
}

// New creates an unlocked RWLock.
func New(name string) *RWLock {
	l := &RWLock{name: name}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Name returns the lock label used in error messages.
func (l *RWLock) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// TryLockRead takes a read lock if no writer holds the lock, otherwise it
// returns ErrBusy.
func (l *RWLock) TryLockRead() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeCount > 0 {
		return errors.Wrapf(api.ErrBusy, "rwlock %q held for writing", l.name)
	}
	l.readCount++
	return nil
}

// TryLockWrite takes the write lock if the lock is free, otherwise it
// returns ErrBusy.
func (l *RWLock) TryLockWrite() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readCount > 0 || l.writeCount > 0 {
		return errors.Wrapf(api.ErrBusy, "rwlock %q in use", l.name)
	}
	l.writeCount = 1
	return nil
}

// LockRead blocks while a writer holds the lock.
func (l *RWLock) LockRead() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	for l.writeCount > 0 {
		l.cond.Wait()
	}
	l.readCount++
	l.mu.Unlock()
	return nil
}

// LockWrite blocks while any reader or writer holds the lock.
func (l *RWLock) LockWrite() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	for l.readCount > 0 || l.writeCount > 0 {
		l.cond.Wait()
	}
	l.writeCount = 1
	l.mu.Unlock()
	return nil
}

// UnlockRead releases one read lock. It returns ErrPermission if no reader
// holds the lock.
func (l *RWLock) UnlockRead() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readCount == 0 {
		return errors.Wrapf(api.ErrPermission, "rwlock %q not locked for reading", l.name)
	}
	l.readCount--
	if l.readCount == 0 {
		l.cond.Broadcast()
	}
	return nil
}

// UnlockWrite releases the write lock. It returns ErrPermission if no writer
// holds the lock.
func (l *RWLock) UnlockWrite() error {
	if l == nil {
		return errNilLock
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeCount == 0 {
		return errors.Wrapf(api.ErrPermission, "rwlock %q not locked for writing", l.name)
	}
	l.writeCount = 0
	// Either a writer or every waiting reader may proceed now.
	l.cond.Broadcast()
	return nil
}

// Counts returns a consistent snapshot of the reader and writer counters.
func (l *RWLock) Counts() (readers, writers int) {
	if l == nil {
		return 0, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readCount, l.writeCount
}

// RLocker returns a sync.Locker that takes read locks. Misuse panics, as
// with the standard library lockers.
func (l *RWLock) RLocker() sync.Locker { return readLocker{l} }

// Locker returns a sync.Locker that takes the write lock.
func (l *RWLock) Locker() sync.Locker { return writeLocker{l} }

type readLocker struct{ l *RWLock }

func (r readLocker) Lock()   { must(r.l.LockRead()) }
func (r readLocker) Unlock() { must(r.l.UnlockRead()) }

type writeLocker struct{ l *RWLock }

func (w writeLocker) Lock()   { must(w.l.LockWrite()) }
func (w writeLocker) Unlock() { must(w.l.UnlockWrite()) }

func must(err error) {
	if err != nil {
		panic(err)
	}
}
