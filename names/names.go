// File: names/names.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide name registry. Initialize and Shutdown bracket its lifetime;
// dependents can assert IsInitialized instead of failing on first use.

package names

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/momentics/hioload-sync/api"
)

var global atomic.Pointer[Table]

type initOptions struct {
	registerer prometheus.Registerer
}

// Option configures Initialize.
type Option func(*initOptions)

// WithRegisterer exposes the global table metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *initOptions) { o.registerer = reg }
}

// Initialize creates the process-wide table. It fails with ErrPermission if
// the registry is already initialized.
func Initialize(capacityHint int, opts ...Option) error {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}
	if global.Load() != nil {
		return errors.Wrap(api.ErrPermission, "name registry already initialized")
	}
	t := newTable(capacityHint, o.registerer)
	if !global.CompareAndSwap(nil, t) {
		return errors.Wrap(api.ErrPermission, "name registry already initialized")
	}
	return nil
}

// IsInitialized reports whether Initialize has run without a matching Shutdown.
func IsInitialized() bool {
	return global.Load() != nil
}

// Shutdown frees every entry. It fails with ErrPermission if the registry is
// not initialized.
func Shutdown() error {
	t := global.Swap(nil)
	if t == nil {
		return errors.Wrap(api.ErrPermission, "name registry not initialized")
	}
	return t.Close()
}

// Create returns the ID for name, interning it on first use.
func Create(name string) (ID, error) {
	t := global.Load()
	if t == nil {
		return Invalid, errors.Wrap(api.ErrPermission, "name registry not initialized")
	}
	return t.Create(name)
}

// Get returns the ID for name, or Invalid if the name is unknown or the
// registry is not initialized.
func Get(name string) ID {
	t := global.Load()
	if t == nil {
		return Invalid
	}
	return t.Get(name)
}

// Len returns the number of interned names, 0 when uninitialized.
func Len() int {
	t := global.Load()
	if t == nil {
		return 0
	}
	return t.Len()
}
