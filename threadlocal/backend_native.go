//go:build windows || tlsnative
// +build windows tlsnative

// File: threadlocal/backend_native.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platforms whose key release runs destructors (fiber-local storage) need
// no live-node list.

package threadlocal

func newBackend() backend { return nativeBackend{} }
