// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/control"
)

// ControlAdapter combines a config store, prometheus metrics and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics prometheus.Gatherer
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter reports metrics gathered from g; g may be nil.
func NewControlAdapter(g prometheus.Gatherer) *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: g,
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	return c.config.SetConfig(cfg)
}

// Stats merges config values, metric sums (prefixed "metric.") and probe
// output (prefixed "debug.").
func (c *ControlAdapter) Stats() map[string]any {
	combined := c.config.GetSnapshot()
	if c.metrics != nil {
		// A failed gather still reports config and probes.
		if snap, err := control.MetricsSnapshot(c.metrics); err == nil {
			for k, v := range snap {
				combined["metric."+k] = v
			}
		}
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func(changed map[string]any) error) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Store exposes the config store for file reloads.
func (c *ControlAdapter) Store() *control.ConfigStore {
	return c.config
}

// Debug exposes the probe registry as api.Debug.
func (c *ControlAdapter) Debug() api.Debug {
	return c.debug
}
