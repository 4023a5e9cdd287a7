//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific implementation for setting thread CPU affinity.

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
)

func setThreadMask(mask uintptr) error {
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		return err
	}
	return nil
}

// setAffinityPlatform sets thread affinity to a given CPU for Windows.
func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= 64 {
		return errors.Errorf("affinity: cpu %d outside mask range", cpuID)
	}
	return errors.Wrap(setThreadMask(uintptr(1)<<uint(cpuID)), "affinity: SetThreadAffinityMask")
}

func resetAffinityPlatform(numCPU int) error {
	if numCPU <= 0 {
		numCPU = 1
	}
	if numCPU > 63 {
		numCPU = 63
	}
	mask := (uintptr(1) << uint(numCPU)) - 1
	return errors.Wrap(setThreadMask(mask), "affinity: SetThreadAffinityMask reset")
}
