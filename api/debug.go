// File: api/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime introspection for the worker pool and name registry.

package api

// Debug reports named readings such as taskpool.threads, taskpool.pending
// and names.entries. The runtime registers its readings at startup; the
// control package backs it with a mutex-guarded registry.
type Debug interface {
	// DumpState evaluates every registered reading. Callbacks run outside
	// the registry lock, so a reading may itself query the pool.
	DumpState() map[string]any

	// RegisterProbe adds or replaces the reading published under name.
	RegisterProbe(name string, fn func() any)
}
