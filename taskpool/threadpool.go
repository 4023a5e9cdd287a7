// File: taskpool/threadpool.go
// Package taskpool runs queued tasks on a resizable set of managed worker threads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A ThreadPool owns worker threads; TaskQueues own work. Workers pick runnable
// queues round robin from a shared ready list, run one task, and go back for
// the next. Shrinking flags surplus workers, which exit at their next idle
// point, and the resizing caller joins them.

package taskpool

import (
	"os"
	"sync"

	"github.com/eapache/queue"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/momentics/hioload-sync/affinity"
	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/internal/concurrency"
)

// MaxThreads is the largest supported worker count.
const MaxThreads = 1023

// fatal terminates the process when a worker start hook fails.
var fatal = func(logger log.Logger, err error) {
	level.Error(logger).Log("msg", "worker start hook failed, aborting", "err", err)
	os.Exit(1)
}

// ThreadPool is a set of worker threads executing tasks from bound TaskQueues.
type ThreadPool struct {
	name          string
	stackSizeHint int
	onStart       HookFunc
	onEnd         HookFunc
	userData      any
	pinWorkers    bool
	logger        log.Logger
	metrics       *poolMetrics

	// resizeMu serializes resizers and protects workers. Readers never take
	// it: threads and count report the size reached by the last grow or join.
	resizeMu sync.Mutex
	workers  []*worker
	count    atomic.Int32

	// mu protects everything below and the scheduling state of bound queues.
	mu      sync.Mutex
	work    *sync.Cond // signalled when a queue becomes runnable or a worker must stop
	drained *sync.Cond // broadcast when a queue drains or the pool loses its workers
	ready   *queue.Queue
	target  int
	threads int
	queues  int
	closed  bool
	running map[concurrency.ThreadID]*worker
}

type worker struct {
	index  int
	thread *concurrency.Thread
	stop   bool // guarded by ThreadPool.mu
}

// NewThreadPool starts threadCount workers. A zero count is valid: bound
// queues then run their tasks on the caller inside WaitForTasks.
func NewThreadPool(threadCount int, opts ...Option) (*ThreadPool, error) {
	if threadCount < 0 || threadCount > MaxThreads {
		return nil, errors.Wrapf(api.ErrInvalidArgument, "thread count %d outside 0..%d", threadCount, MaxThreads)
	}
	o := poolOptions{name: "default", logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.stackSizeHint < 0 {
		return nil, errors.Wrapf(api.ErrInvalidArgument, "negative stack size hint %d", o.stackSizeHint)
	}

	p := &ThreadPool{
		name:          o.name,
		stackSizeHint: o.stackSizeHint,
		onStart:       o.onStart,
		onEnd:         o.onEnd,
		userData:      o.userData,
		pinWorkers:    o.pinWorkers,
		logger:        log.With(o.logger, "component", "taskpool", "pool", o.name),
		metrics:       newPoolMetrics(o.registerer, o.name),
		ready:         queue.New(),
		running:       make(map[concurrency.ThreadID]*worker),
	}
	p.work = sync.NewCond(&p.mu)
	p.drained = sync.NewCond(&p.mu)

	p.resizeMu.Lock()
	p.grow(threadCount)
	p.resizeMu.Unlock()

	level.Debug(p.logger).Log("msg", "thread pool started", "threads", threadCount, "stack_size_hint", o.stackSizeHint)
	return p, nil
}

// Name returns the pool label.
func (p *ThreadPool) Name() string { return p.name }

// StackSizeHint returns the configured stack size hint in bytes.
func (p *ThreadPool) StackSizeHint() int { return p.stackSizeHint }

// ThreadCount returns the number of live workers. During a shrink it reports
// the count from before the resize until every surplus worker has been
// joined. It is safe to call from tasks and hooks.
func (p *ThreadPool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threads
}

// ThreadCountUnlocked returns the number of workers without taking the pool
// lock. During a resize it may report the count from before or after the
// change.
func (p *ThreadPool) ThreadCountUnlocked() int {
	return int(p.count.Load())
}

// SetThreadCount grows or shrinks the pool. Shrinking lets surplus workers
// finish their current task and blocks until they have exited. Calling it
// from a worker of the same pool would wait on itself and is refused with
// ErrPermission.
//
// Validation happens before anything changes, so a failed call leaves the
// count untouched; ThreadCount always reports the count actually reached.
func (p *ThreadPool) SetThreadCount(n int) error {
	if n < 0 || n > MaxThreads {
		return errors.Wrapf(api.ErrInvalidArgument, "thread count %d outside 0..%d", n, MaxThreads)
	}
	if p.isWorkerThread() {
		return errors.Wrap(api.ErrPermission, "SetThreadCount called from a worker of the same pool")
	}

	p.resizeMu.Lock()
	defer p.resizeMu.Unlock()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return errors.Wrap(api.ErrClosed, "thread pool closed")
	}

	cur := len(p.workers)
	switch {
	case n > cur:
		p.grow(n)
	case n < cur:
		p.shrink(n)
	default:
		return nil
	}
	p.metrics.resizes.Inc()
	level.Debug(p.logger).Log("msg", "thread count changed", "from", cur, "to", n)
	return nil
}

// Close stops and joins every worker. All queues bound to the pool must be
// closed first, otherwise ErrBusy is returned and the pool keeps running.
// Closing a closed pool is a no-op.
func (p *ThreadPool) Close() error {
	if p.isWorkerThread() {
		return errors.Wrap(api.ErrPermission, "Close called from a worker of the same pool")
	}
	p.resizeMu.Lock()
	defer p.resizeMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.queues > 0 {
		n := p.queues
		p.mu.Unlock()
		return errors.Wrapf(api.ErrBusy, "%d task queues still bound", n)
	}
	p.closed = true
	p.mu.Unlock()

	p.shrink(0)
	level.Debug(p.logger).Log("msg", "thread pool closed")
	return nil
}

// grow spawns workers until there are n. Caller holds resizeMu.
func (p *ThreadPool) grow(n int) {
	p.mu.Lock()
	p.target = n
	p.mu.Unlock()
	for i := len(p.workers); i < n; i++ {
		w := &worker{index: i}
		w.thread = concurrency.Go(func() { p.runWorker(w) })
		p.workers = append(p.workers, w)
	}
	p.setThreads(len(p.workers))
}

// shrink stops workers beyond n and joins them. Caller holds resizeMu.
func (p *ThreadPool) shrink(n int) {
	surplus := p.workers[n:]
	p.mu.Lock()
	p.target = n
	for _, w := range surplus {
		w.stop = true
	}
	p.work.Broadcast()
	if n == 0 {
		// Waiters switch to draining their queues themselves.
		p.drained.Broadcast()
	}
	p.mu.Unlock()

	for _, w := range surplus {
		w.thread.Join()
	}
	clear(surplus)
	p.workers = p.workers[:n]
	p.setThreads(n)
}

func (p *ThreadPool) setThreads(n int) {
	p.mu.Lock()
	p.threads = n
	p.mu.Unlock()
	p.count.Store(int32(n))
	p.metrics.workers.Set(float64(n))
}

func (p *ThreadPool) isWorkerThread() bool {
	tid := concurrency.CurrentThreadID()
	p.mu.Lock()
	_, ok := p.running[tid]
	p.mu.Unlock()
	return ok
}

func (p *ThreadPool) runWorker(w *worker) {
	tid := concurrency.CurrentThreadID()
	p.mu.Lock()
	p.running[tid] = w
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.running, tid)
		p.mu.Unlock()
	}()

	if p.pinWorkers {
		cpuID := affinity.CPUForWorker(w.index)
		if err := affinity.SetAffinity(cpuID); err != nil {
			level.Warn(p.logger).Log("msg", "failed to pin worker", "worker", w.index, "cpu", cpuID, "err", err)
		}
	}
	if p.onStart != nil {
		if err := p.onStart(p.userData); err != nil {
			fatal(p.logger, errors.Wrapf(err, "worker %d", w.index))
			return
		}
	}

	p.workerLoop(w)

	if p.onEnd != nil {
		if err := p.onEnd(p.userData); err != nil {
			level.Warn(p.logger).Log("msg", "worker end hook failed", "worker", w.index, "err", err)
		}
	}
}

// workerLoop cycles idle -> executing -> idle until the worker is told to stop.
func (p *ThreadPool) workerLoop(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		for !w.stop && p.ready.Length() == 0 {
			p.work.Wait()
		}
		if w.stop {
			if p.ready.Length() > 0 {
				// Pass on a wakeup this worker may have absorbed.
				p.work.Signal()
			}
			return
		}
		q := p.ready.Remove().(*TaskQueue)
		q.scheduled = false
		task, ok := q.takeLocked()
		if !ok {
			continue
		}
		if p.scheduleLocked(q) {
			p.work.Signal()
		}

		p.mu.Unlock()
		p.execute(task)
		p.mu.Lock()

		p.finishLocked(q)
	}
}

// scheduleLocked puts q on the ready list if it has startable work and is
// not already listed.
func (p *ThreadPool) scheduleLocked(q *TaskQueue) bool {
	if q.scheduled || !q.runnableLocked() {
		return false
	}
	q.scheduled = true
	p.ready.Add(q)
	return true
}

// finishLocked accounts for a completed task of q.
func (p *ThreadPool) finishLocked(q *TaskQueue) {
	q.executing--
	q.pending--
	if p.scheduleLocked(q) {
		p.work.Signal()
	}
	if q.pending == 0 || q.waiters > 0 {
		p.drained.Broadcast()
	}
}

func (p *ThreadPool) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.taskPanics.Inc()
			level.Error(p.logger).Log("msg", "task panicked", "panic", r)
		}
	}()
	task.Func(task.Arg)
	p.metrics.tasksExecuted.Inc()
}
