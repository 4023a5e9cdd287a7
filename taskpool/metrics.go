// File: taskpool/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package taskpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type poolMetrics struct {
	workers       prometheus.Gauge
	tasksExecuted prometheus.Counter
	taskPanics    prometheus.Counter
	resizes       prometheus.Counter
}

func newPoolMetrics(reg prometheus.Registerer, name string) *poolMetrics {
	labels := prometheus.Labels{"pool": name}
	return &poolMetrics{
		workers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "taskpool_workers",
			Help:        "Number of running worker threads.",
			ConstLabels: labels,
		}),
		tasksExecuted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "taskpool_tasks_executed_total",
			Help:        "Total number of tasks run to completion.",
			ConstLabels: labels,
		}),
		taskPanics: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "taskpool_task_panics_total",
			Help:        "Total number of tasks that panicked.",
			ConstLabels: labels,
		}),
		resizes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "taskpool_resizes_total",
			Help:        "Total number of completed thread count changes.",
			ConstLabels: labels,
		}),
	}
}
