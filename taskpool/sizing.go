// File: taskpool/sizing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package taskpool

import "runtime"

// FullThreadCount returns one worker per logical CPU minus the caller's own
// thread, at least 1.
func FullThreadCount() int {
	return max(runtime.NumCPU()-1, 1)
}

// DefaultThreadCount returns three quarters of the logical CPUs, at least 1.
// The headroom keeps unmanaged threads (audio, OS services) from stalling
// behind busy workers.
func DefaultThreadCount() int {
	return max(runtime.NumCPU()*3/4, 1)
}
