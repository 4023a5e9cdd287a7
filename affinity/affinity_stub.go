//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import (
	"github.com/pkg/errors"

	"github.com/momentics/hioload-sync/api"
)

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return errors.Wrap(api.ErrPermission, "affinity: not supported on this platform")
}

func resetAffinityPlatform(int) error {
	return errors.Wrap(api.ErrPermission, "affinity: not supported on this platform")
}
