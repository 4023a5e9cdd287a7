// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.
//
// All calls act on the calling OS thread, so the goroutine must be locked to
// its thread (managed threads always are).

package affinity

import "runtime"

// SetAffinity pins current OS thread to a given logical CPU/core on supported platforms.
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// ResetAffinity lets the current OS thread run on every logical CPU again.
func ResetAffinity() error {
	return resetAffinityPlatform(runtime.NumCPU())
}

// CPUForWorker spreads worker indices round robin over the logical CPUs.
func CPUForWorker(index int) int {
	n := runtime.NumCPU()
	if n <= 0 || index < 0 {
		return 0
	}
	return index % n
}
