// File: taskpool/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for ThreadPool and TaskQueue construction.

package taskpool

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// HookFunc runs on a worker thread right after it starts or right before it
// exits. It receives the pool's shared hook user data.
type HookFunc func(userData any) error

type poolOptions struct {
	name          string
	stackSizeHint int
	onStart       HookFunc
	onEnd         HookFunc
	userData      any
	logger        log.Logger
	registerer    prometheus.Registerer
	pinWorkers    bool
}

// Option configures a ThreadPool.
type Option func(*poolOptions)

// WithName labels the pool in logs and metrics.
func WithName(name string) Option {
	return func(o *poolOptions) { o.name = name }
}

// WithStackSizeHint records the requested worker stack size in bytes.
// Goroutine stacks grow on demand, so the hint is advisory.
func WithStackSizeHint(bytes int) Option {
	return func(o *poolOptions) { o.stackSizeHint = bytes }
}

// WithStartHook runs fn on every worker thread right after it starts. A
// worker that cannot acquire its per-thread resources has no safe way to
// continue, so a non-nil error terminates the process.
func WithStartHook(fn HookFunc) Option {
	return func(o *poolOptions) { o.onStart = fn }
}

// WithEndHook runs fn on every worker thread right before it exits. Errors
// are logged.
func WithEndHook(fn HookFunc) Option {
	return func(o *poolOptions) { o.onEnd = fn }
}

// WithHookUserData sets the value passed to start and end hooks.
func WithHookUserData(data any) Option {
	return func(o *poolOptions) { o.userData = data }
}

// WithLogger sets the pool logger.
func WithLogger(logger log.Logger) Option {
	return func(o *poolOptions) { o.logger = logger }
}

// WithRegisterer registers pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *poolOptions) { o.registerer = reg }
}

// WithAffinity pins worker i to logical CPU i modulo the CPU count.
func WithAffinity(pin bool) Option {
	return func(o *poolOptions) { o.pinWorkers = pin }
}

type queueOptions struct {
	maxTasks       int
	maxConcurrency int
}

// QueueOption configures a TaskQueue.
type QueueOption func(*queueOptions)

// WithMaxTasks bounds the number of queued (not yet started) tasks.
// 0 means unbounded.
func WithMaxTasks(n int) QueueOption {
	return func(o *queueOptions) { o.maxTasks = n }
}

// WithMaxConcurrency bounds how many tasks of the queue run at once.
// 0 means unbounded; 1 makes execution strictly serial in FIFO order.
func WithMaxConcurrency(n int) QueueOption {
	return func(o *queueOptions) { o.maxConcurrency = n }
}
