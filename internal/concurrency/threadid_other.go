//go:build !linux && !windows
// +build !linux,!windows

// File: internal/concurrency/threadid_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback identity for platforms without a cheap thread id syscall in x/sys.
// Managed threads are locked to their OS thread for their whole life, so the
// goroutine id maps one-to-one onto the underlying thread.

package concurrency

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

func platformThreadID() ThreadID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("concurrency: cannot parse goroutine id: " + err.Error())
	}
	return ThreadID(id)
}
