// File: names/table.go
// Package names interns strings into small stable integer IDs so hot paths
// compare and hash names as integers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package names

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/internal/concurrency"
)

// ID identifies an interned name. IDs start at 1; 0 means "not found".
type ID uint32

// Invalid is the ID returned for unknown names.
const Invalid ID = 0

// DefaultCapacity is used when no positive capacity hint is given.
const DefaultCapacity = 512

type entry struct {
	name string
	hash uint32
	id   ID
	next *entry
}

// Table is an open-chained hash table from names to IDs. Lookup, growth and
// insertion happen under a single spinlock acquisition, so concurrent callers
// never create two entries for one name.
type Table struct {
	lock     concurrency.Spinlock
	buckets  []*entry
	count    int
	nextID   ID
	capacity int
	live     bool

	metrics *tableMetrics
}

// NewTable creates a table sized for capacityHint entries before its first
// growth. A hint <= 0 selects DefaultCapacity.
func NewTable(capacityHint int) *Table {
	return newTable(capacityHint, nil)
}

func newTable(capacityHint int, reg prometheus.Registerer) *Table {
	t := &Table{metrics: newTableMetrics(reg)}
	t.reset(capacityHint)
	return t
}

func (t *Table) reset(capacityHint int) {
	if capacityHint <= 0 {
		capacityHint = DefaultCapacity
	}
	t.buckets = make([]*entry, capacityHint)
	t.capacity = capacityHint
	t.count = 0
	t.nextID = 1
	t.live = true
	t.metrics.capacity.Set(float64(capacityHint))
	t.metrics.entries.Set(0)
}

// Create returns the ID of name, interning it on first use.
func (t *Table) Create(name string) (ID, error) {
	if name == "" {
		return Invalid, errors.Wrap(api.ErrInvalidArgument, "empty name")
	}
	h := fnv1a.HashString32(name)

	t.lock.Lock()
	if !t.live {
		t.lock.Unlock()
		return Invalid, errors.Wrap(api.ErrPermission, "name table not initialized")
	}
	if e := t.findLocked(name, h); e != nil {
		t.lock.Unlock()
		return e.id, nil
	}
	grew := false
	if t.count+1 > t.capacity {
		t.growLocked()
		grew = true
	}
	e := &entry{
		// Owned copy: callers may pass substrings of large buffers.
		name: strings.Clone(name),
		hash: h,
		id:   t.nextID,
	}
	t.nextID++
	b := h % uint32(len(t.buckets))
	e.next = t.buckets[b]
	t.buckets[b] = e
	t.count++
	count, capacity := t.count, t.capacity
	t.lock.Unlock()

	t.metrics.entries.Set(float64(count))
	if grew {
		t.metrics.grows.Inc()
		t.metrics.capacity.Set(float64(capacity))
	}
	return e.id, nil
}

// Get returns the ID of name, or Invalid if it was never created or the
// table is shut down. It never allocates.
func (t *Table) Get(name string) ID {
	h := fnv1a.HashString32(name)
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.live {
		return Invalid
	}
	if e := t.findLocked(name, h); e != nil {
		return e.id
	}
	return Invalid
}

// Len returns the number of interned names.
func (t *Table) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.count
}

// Capacity returns the entry count that triggers the next growth.
func (t *Table) Capacity() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.capacity
}

// Close drops every entry. Close on a closed table returns ErrPermission.
func (t *Table) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.live {
		return errors.Wrap(api.ErrPermission, "name table not initialized")
	}
	t.buckets = nil
	t.count = 0
	t.capacity = 0
	t.live = false
	return nil
}

func (t *Table) findLocked(name string, h uint32) *entry {
	for e := t.buckets[h%uint32(len(t.buckets))]; e != nil; e = e.next {
		if e.hash == h && e.name == name {
			return e
		}
	}
	return nil
}

// growLocked doubles the bucket array and relinks every entry.
func (t *Table) growLocked() {
	t.capacity *= 2
	buckets := make([]*entry, t.capacity)
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.next
			b := e.hash % uint32(len(buckets))
			e.next = buckets[b]
			buckets[b] = e
			e = next
		}
	}
	t.buckets = buckets
}

type tableMetrics struct {
	entries  prometheus.Gauge
	capacity prometheus.Gauge
	grows    prometheus.Counter
}

// newTableMetrics registers with reg, reusing collectors left behind by a
// previous table so Shutdown followed by Initialize keeps working.
func newTableMetrics(reg prometheus.Registerer) *tableMetrics {
	return &tableMetrics{
		entries: registerOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "names_entries",
			Help: "Number of interned names.",
		})),
		capacity: registerOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "names_capacity",
			Help: "Entry count that triggers the next table growth.",
		})),
		grows: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "names_grows_total",
			Help: "Total number of table growths.",
		})),
	}
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
