// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface, delegating to the
//   affinity package for CPU pinning of the calling thread.

package adapters

import (
	"runtime"

	"github.com/momentics/hioload-sync/affinity"
	"github.com/momentics/hioload-sync/api"
)

// AffinityAdapter implements api.Affinity for the calling OS thread.
// Pin locks the calling goroutine to its thread; Unpin releases it.
type AffinityAdapter struct {
	currentCPU int
	pinned     bool
	scope      api.AffinityScope
}

var _ api.Affinity = (*AffinityAdapter)(nil)

// NewAffinityAdapter creates an unbound adapter with thread scope.
func NewAffinityAdapter() *AffinityAdapter {
	return &AffinityAdapter{
		currentCPU: -1,
		scope:      api.ScopeThread,
	}
}

// Pin binds the calling thread to cpuID. cpuID < 0 selects CPU 0.
func (a *AffinityAdapter) Pin(cpuID int) error {
	if cpuID < 0 {
		cpuID = affinity.CPUForWorker(0)
	}
	if !a.pinned {
		runtime.LockOSThread()
	}
	if err := affinity.SetAffinity(cpuID); err != nil {
		if !a.pinned {
			runtime.UnlockOSThread()
		}
		return err
	}
	a.currentCPU = cpuID
	a.pinned = true
	return nil
}

// Unpin lets the thread run on every CPU again.
func (a *AffinityAdapter) Unpin() error {
	if !a.pinned {
		return nil
	}
	if err := affinity.ResetAffinity(); err != nil {
		return err
	}
	runtime.UnlockOSThread()
	a.pinned = false
	a.currentCPU = -1
	return nil
}

// Get returns the CPU last pinned to, or -1.
func (a *AffinityAdapter) Get() (int, error) {
	return a.currentCPU, nil
}

// ImmutableDescriptor returns a snapshot of the current binding state.
func (a *AffinityAdapter) ImmutableDescriptor() api.AffinityDescriptor {
	return api.AffinityDescriptor{
		CPUID:  a.currentCPU,
		Scope:  a.scope,
		Pinned: a.pinned,
	}
}
