//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
// pid 0 addresses the calling thread.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "affinity: sched_setaffinity cpu %d", cpuID)
	}
	return nil
}

// resetAffinityPlatform allows every CPU the set can express; the kernel
// intersects it with the cpuset of the process.
func resetAffinityPlatform(int) error {
	var set unix.CPUSet
	for i := range set {
		set[i] = ^set[i]
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrap(err, "affinity: sched_setaffinity reset")
	}
	return nil
}
