//go:build windows
// +build windows

// File: internal/concurrency/threadid_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows thread identity via GetCurrentThreadId.

package concurrency

import "golang.org/x/sys/windows"

func platformThreadID() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}
