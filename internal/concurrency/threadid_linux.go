//go:build linux
// +build linux

// File: internal/concurrency/threadid_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux thread identity via gettid(2).

package concurrency

import "golang.org/x/sys/unix"

func platformThreadID() ThreadID {
	return ThreadID(unix.Gettid())
}
