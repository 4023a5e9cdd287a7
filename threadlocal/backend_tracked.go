//go:build !windows && !tlsnative
// +build !windows,!tlsnative

// File: threadlocal/backend_tracked.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX-style key deletion discards values, so live nodes are tracked
// explicitly for Destroy.

package threadlocal

func newBackend() backend { return &trackedBackend{} }
