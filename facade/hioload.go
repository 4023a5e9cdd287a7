// File: facade/hioload.go
// Unified facade layer for hioload-sync.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime aggregates the synchronization core behind a single value: one
// worker pool with its default queue, the process-wide name registry,
// prometheus metrics, debug probes and a hot-reloadable config store. A
// reload that changes taskpool.threads resizes the pool in place.

package facade

import (
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-sync/adapters"
	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/control"
	"github.com/momentics/hioload-sync/names"
	"github.com/momentics/hioload-sync/taskpool"
)

type runtimeOptions struct {
	name     string
	logger   log.Logger
	onStart  taskpool.HookFunc
	onEnd    taskpool.HookFunc
	userData any
}

// Option configures a Runtime.
type Option func(*runtimeOptions)

// WithName labels logs and metrics. Defaults to "hioload".
func WithName(name string) Option {
	return func(o *runtimeOptions) { o.name = name }
}

// WithLogger replaces the logger built from the configured log level.
func WithLogger(logger log.Logger) Option {
	return func(o *runtimeOptions) { o.logger = logger }
}

// WithWorkerHooks installs pool start and end hooks sharing userData.
func WithWorkerHooks(onStart, onEnd taskpool.HookFunc, userData any) Option {
	return func(o *runtimeOptions) {
		o.onStart = onStart
		o.onEnd = onEnd
		o.userData = userData
	}
}

// Runtime is the main facade type.
type Runtime struct {
	cfg      control.Config
	logger   log.Logger
	registry *prometheus.Registry
	control  *adapters.ControlAdapter
	pool     *taskpool.ThreadPool
	executor *adapters.ExecutorAdapter

	// ownsNames is set when this runtime initialized the name registry and
	// therefore shuts it down.
	ownsNames bool

	mu          sync.Mutex
	queueClosed bool
	closed      bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Runtime)(nil)

// New validates cfg and starts every component. On failure the components
// started so far are released.
func New(cfg control.Config, opts ...Option) (_ *Runtime, err error) {
	o := runtimeOptions{name: "hioload"}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		if o.logger, err = control.NewLogger(cfg.LogLevel, os.Stderr); err != nil {
			return nil, err
		}
	}

	r := &Runtime{cfg: cfg, logger: log.With(o.logger, "runtime", o.name)}
	var reg prometheus.Registerer
	r.registry, reg = control.NewRegistry(o.name)

	switch err := names.Initialize(cfg.Names.Capacity, names.WithRegisterer(reg)); {
	case err == nil:
		r.ownsNames = true
	case errors.Is(err, api.ErrPermission):
		level.Info(r.logger).Log("msg", "name registry already initialized, sharing it")
	default:
		return nil, err
	}
	defer func() {
		if err != nil && r.ownsNames {
			err = multierr.Append(err, names.Shutdown())
		}
	}()

	r.pool, err = taskpool.NewThreadPool(cfg.TaskPool.Threads,
		taskpool.WithName(o.name),
		taskpool.WithStackSizeHint(cfg.TaskPool.StackSizeHint),
		taskpool.WithAffinity(cfg.TaskPool.PinWorkers),
		taskpool.WithStartHook(o.onStart),
		taskpool.WithEndHook(o.onEnd),
		taskpool.WithHookUserData(o.userData),
		taskpool.WithLogger(r.logger),
		taskpool.WithRegisterer(reg),
	)
	if err != nil {
		return nil, err
	}
	r.executor, err = adapters.NewExecutorAdapter(r.pool,
		taskpool.WithMaxTasks(cfg.TaskPool.QueueMaxTasks),
		taskpool.WithMaxConcurrency(cfg.TaskPool.QueueMaxConcurrency),
	)
	if err != nil {
		return nil, multierr.Append(err, r.pool.Close())
	}

	r.control = adapters.NewControlAdapter(r.registry)
	// Seed before subscribing so the initial values are not a reload.
	if err := r.control.SetConfig(cfg.Flatten()); err != nil {
		return nil, multierr.Combine(err, r.executor.Close(), r.pool.Close())
	}
	r.control.OnReload(r.applyReload)
	r.registerProbes()

	level.Info(r.logger).Log("msg", "runtime started", "threads", r.pool.ThreadCount(), "names_capacity", cfg.Names.Capacity)
	return r, nil
}

func (r *Runtime) registerProbes() {
	r.control.RegisterDebugProbe("taskpool.threads", func() any { return r.pool.ThreadCountUnlocked() })
	r.control.RegisterDebugProbe("taskpool.pending", func() any { return r.executor.Queue().Len() })
	r.control.RegisterDebugProbe("taskpool.stack_size_hint", func() any { return r.pool.StackSizeHint() })
	r.control.RegisterDebugProbe("names.initialized", func() any { return names.IsInitialized() })
	r.control.RegisterDebugProbe("names.entries", func() any { return names.Len() })
}

// applyReload reacts to changed config keys. Only the thread count can
// change at runtime; other keys are logged and take effect on restart.
func (r *Runtime) applyReload(changed map[string]any) error {
	var err error
	for key, v := range changed {
		if key != control.KeyTaskPoolThreads {
			level.Info(r.logger).Log("msg", "config change requires restart", "key", key, "value", v)
			continue
		}
		n, ok := v.(int)
		if !ok {
			err = multierr.Append(err, api.NewError(api.ErrCodeInvalidArgument, "thread count must be an int").
				WithContext("key", key).
				WithContext("value", v))
			continue
		}
		before := r.pool.ThreadCount()
		if e := r.pool.SetThreadCount(n); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "resize pool to %d", n))
			continue
		}
		level.Info(r.logger).Log("msg", "pool resized", "from", before, "to", n)
	}
	return err
}

// Submit dispatches a task to the default queue.
func (r *Runtime) Submit(task func()) error {
	return r.executor.Submit(task)
}

// Executor returns the default queue as api.Executor.
func (r *Runtime) Executor() api.Executor { return r.executor }

// Pool returns the worker pool so callers can bind their own queues.
func (r *Runtime) Pool() *taskpool.ThreadPool { return r.pool }

// Control returns the Control interface for dynamic config and metrics.
func (r *Runtime) Control() api.Control { return r.control }

// Debug returns the probe registry.
func (r *Runtime) Debug() api.Debug { return r.control.Debug() }

// Store returns the config store backing Control.
func (r *Runtime) Store() *control.ConfigStore { return r.control.Store() }

// Config returns the configuration the runtime was started with.
func (r *Runtime) Config() control.Config { return r.cfg }

// Logger returns the runtime logger.
func (r *Runtime) Logger() log.Logger { return r.logger }

// Gatherer exposes the runtime metrics for scraping.
func (r *Runtime) Gatherer() prometheus.Gatherer { return r.registry }

// Reload re-reads the YAML file at path over the startup configuration.
func (r *Runtime) Reload(path string) error {
	return control.ReloadFile(r.control.Store(), path, r.cfg)
}

// Shutdown drains the default queue, closes the pool and releases the name
// registry if this runtime initialized it. Queues bound by callers must be
// closed first; until then Shutdown returns ErrBusy and may be retried.
// Calling Shutdown after it succeeded is a no-op.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if !r.queueClosed {
		if err := r.executor.Close(); err != nil {
			return errors.Wrap(err, "close default queue")
		}
		r.queueClosed = true
	}
	if err := r.pool.Close(); err != nil {
		level.Warn(r.logger).Log("msg", "runtime shutdown deferred", "err", err)
		return errors.Wrap(err, "close pool")
	}
	r.closed = true
	if r.ownsNames {
		if err := names.Shutdown(); err != nil {
			return errors.Wrap(err, "shutdown name registry")
		}
	}
	level.Info(r.logger).Log("msg", "runtime stopped")
	return nil
}
