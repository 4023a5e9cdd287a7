// Package api
// Author: momentics@gmail.com
//
// CPU affinity and thread pinning definitions.

package api

// AffinityScope describes what a binding applies to.
type AffinityScope int

const (
	ScopeThread AffinityScope = iota
	ScopeProcess
)

// AffinityDescriptor is an immutable snapshot of a binding.
type AffinityDescriptor struct {
	CPUID  int
	Scope  AffinityScope
	Pinned bool
}

// Affinity controls execution on particular CPUs.
type Affinity interface {
	// Pin locks the current thread to a CPU. cpuID < 0 selects any CPU.
	Pin(cpuID int) error
	// Unpin removes affinity.
	Unpin() error
	// Get returns the CPU the adapter last pinned to, or -1.
	Get() (cpuID int, err error)
}
