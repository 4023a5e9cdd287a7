// control/settings.go
// Author: momentics <momentics@gmail.com>
//
// Static runtime configuration: YAML file, command-line flags, validation.

package control

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/names"
	"github.com/momentics/hioload-sync/taskpool"
)

// Config keys published to the ConfigStore. A reload that changes
// KeyTaskPoolThreads resizes the runtime pool.
const (
	KeyTaskPoolThreads    = "taskpool.threads"
	KeyTaskPoolPinWorkers = "taskpool.pin_workers"
	KeyTaskPoolStackHint  = "taskpool.stack_size_hint"
	KeyQueueMaxTasks      = "taskpool.queue_max_tasks"
	KeyQueueConcurrency   = "taskpool.queue_max_concurrency"
	KeyNamesCapacity      = "names.capacity"
	KeyLogLevel           = "log.level"
)

// TaskPoolConfig configures the runtime worker pool and its default queue.
type TaskPoolConfig struct {
	Threads             int  `yaml:"threads"`
	StackSizeHint       int  `yaml:"stack_size_hint"`
	PinWorkers          bool `yaml:"pin_workers"`
	QueueMaxTasks       int  `yaml:"queue_max_tasks"`
	QueueMaxConcurrency int  `yaml:"queue_max_concurrency"`
}

// RegisterFlags registers the pool flags on f.
func (c *TaskPoolConfig) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&c.Threads, KeyTaskPoolThreads, taskpool.DefaultThreadCount(), "Number of worker threads. 0 runs queued tasks on the waiting caller.")
	f.IntVar(&c.StackSizeHint, KeyTaskPoolStackHint, 0, "Requested worker stack size in bytes (advisory).")
	f.BoolVar(&c.PinWorkers, KeyTaskPoolPinWorkers, false, "Pin worker threads to logical CPUs round robin.")
	f.IntVar(&c.QueueMaxTasks, KeyQueueMaxTasks, 0, "Maximum queued tasks of the default queue. 0 means unbounded.")
	f.IntVar(&c.QueueMaxConcurrency, KeyQueueConcurrency, 0, "Maximum concurrently running tasks of the default queue. 0 means unbounded.")
}

// Validate checks the pool settings.
func (c *TaskPoolConfig) Validate() error {
	if c.Threads < 0 || c.Threads > taskpool.MaxThreads {
		return errors.Wrapf(api.ErrInvalidArgument, "%s must be in [0, %d], got %d", KeyTaskPoolThreads, taskpool.MaxThreads, c.Threads)
	}
	if c.StackSizeHint < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "%s must not be negative", KeyTaskPoolStackHint)
	}
	if c.QueueMaxTasks < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "%s must not be negative", KeyQueueMaxTasks)
	}
	if c.QueueMaxConcurrency < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "%s must not be negative", KeyQueueConcurrency)
	}
	return nil
}

// NamesConfig configures the process-wide name registry.
type NamesConfig struct {
	Capacity int `yaml:"capacity"`
}

// RegisterFlags registers the name registry flags on f.
func (c *NamesConfig) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&c.Capacity, KeyNamesCapacity, names.DefaultCapacity, "Initial name table capacity.")
}

// Config is the full runtime configuration.
type Config struct {
	TaskPool TaskPoolConfig `yaml:"taskpool"`
	Names    NamesConfig    `yaml:"names"`
	LogLevel string         `yaml:"log_level"`
}

// RegisterFlags registers every flag on f, setting defaults as a side effect.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.TaskPool.RegisterFlags(f)
	c.Names.RegisterFlags(f)
	f.StringVar(&c.LogLevel, KeyLogLevel, "info", "Log level: debug, info, warn or error.")
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.TaskPool.Validate(); err != nil {
		return err
	}
	if c.Names.Capacity < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "%s must not be negative", KeyNamesCapacity)
	}
	if _, err := levelOption(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DefaultConfig returns the flag defaults.
func DefaultConfig() Config {
	var c Config
	c.RegisterFlags(flag.NewFlagSet("defaults", flag.ContinueOnError))
	return c
}

// LoadConfig decodes the YAML file at path over cfg and validates the result.
// Unknown keys are rejected.
func LoadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}
	return cfg.Validate()
}

// Flatten returns the configuration as ConfigStore keys.
func (c *Config) Flatten() map[string]any {
	return map[string]any{
		KeyTaskPoolThreads:    c.TaskPool.Threads,
		KeyTaskPoolPinWorkers: c.TaskPool.PinWorkers,
		KeyTaskPoolStackHint:  c.TaskPool.StackSizeHint,
		KeyQueueMaxTasks:      c.TaskPool.QueueMaxTasks,
		KeyQueueConcurrency:   c.TaskPool.QueueMaxConcurrency,
		KeyNamesCapacity:      c.Names.Capacity,
		KeyLogLevel:           c.LogLevel,
	}
}
