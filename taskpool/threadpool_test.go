package taskpool

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/momentics/hioload-sync/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPool(t *testing.T, n int, opts ...Option) *ThreadPool {
	t.Helper()
	p, err := NewThreadPool(n, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func newQueue(t *testing.T, p *ThreadPool, opts ...QueueOption) *TaskQueue {
	t.Helper()
	q, err := NewTaskQueue(p, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		q.WaitForTasks()
		require.NoError(t, q.Close())
	})
	return q
}

func TestNewThreadPool_ThreadCount(t *testing.T) {
	for _, n := range []int{0, 1, 4, 16} {
		t.Run(fmt.Sprintf("threads=%d", n), func(t *testing.T) {
			p := newPool(t, n)
			assert.Equal(t, n, p.ThreadCount())
			assert.Equal(t, n, p.ThreadCountUnlocked())
		})
	}
}

func TestNewThreadPool_InvalidArguments(t *testing.T) {
	_, err := NewThreadPool(-1)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = NewThreadPool(MaxThreads + 1)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = NewThreadPool(1, WithStackSizeHint(-1))
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = NewTaskQueue(nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestThreadPool_StackSizeHintAndName(t *testing.T) {
	p := newPool(t, 1, WithName("render"), WithStackSizeHint(1<<20))
	assert.Equal(t, "render", p.Name())
	assert.Equal(t, 1<<20, p.StackSizeHint())
}

func TestThreadPool_SetThreadCount(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	p := newPool(t, 2, WithRegisterer(reg))

	require.NoError(t, p.SetThreadCount(6))
	assert.Equal(t, 6, p.ThreadCount())

	require.NoError(t, p.SetThreadCount(1))
	assert.Equal(t, 1, p.ThreadCount())

	require.NoError(t, p.SetThreadCount(1))
	require.NoError(t, p.SetThreadCount(0))
	assert.Equal(t, 0, p.ThreadCount())

	assert.Equal(t, float64(0), testutil.ToFloat64(p.metrics.workers))
	assert.Equal(t, float64(3), testutil.ToFloat64(p.metrics.resizes))

	err := p.SetThreadCount(MaxThreads + 1)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, 0, p.ThreadCount(), "failed resize must leave the count untouched")
}

func TestThreadPool_ResizeWhileBusy(t *testing.T) {
	p := newPool(t, 2)
	q := newQueue(t, p)

	const total = 2000
	var executed atomic.Int64
	seen := make([]atomic.Int32, total)
	for i := 0; i < total; i++ {
		require.NoError(t, q.Push(Task{Func: func(arg any) {
			seen[arg.(int)].Inc()
			executed.Inc()
		}, Arg: i}))
		switch i {
		case 500:
			require.NoError(t, p.SetThreadCount(8))
		case 1000:
			require.NoError(t, p.SetThreadCount(1))
		case 1500:
			require.NoError(t, p.SetThreadCount(3))
		}
	}
	q.WaitForTasks()

	assert.Equal(t, int64(total), executed.Load())
	for i := range seen {
		require.Equal(t, int32(1), seen[i].Load(), "task %d", i)
	}
}

func TestThreadPool_ShrinkWaitsForRunningTask(t *testing.T) {
	p := newPool(t, 1)
	q := newQueue(t, p)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, q.Push(Task{Func: func(any) {
		close(started)
		<-release
		finished.Store(true)
	}}))
	<-started

	shrunk := make(chan error, 1)
	go func() { shrunk <- p.SetThreadCount(0) }()

	select {
	case <-shrunk:
		t.Fatal("shrink returned while a task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-shrunk)
	assert.True(t, finished.Load())
	assert.Equal(t, 0, p.ThreadCount())
}

func TestThreadPool_ThreadCountFromTaskDuringShrink(t *testing.T) {
	p := newPool(t, 1)
	q := newQueue(t, p)

	started := make(chan struct{})
	release := make(chan struct{})
	observed := make(chan int, 1)
	require.NoError(t, q.Push(Task{Func: func(any) {
		close(started)
		<-release
		observed <- p.ThreadCount()
	}}))
	<-started

	shrunk := make(chan error, 1)
	go func() { shrunk <- p.SetThreadCount(0) }()
	// Let the resizer flag the worker before the task reads the count.
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case err := <-shrunk:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("SetThreadCount did not return while a task read the thread count")
	}
	assert.Equal(t, 1, <-observed, "the worker is still live while its task runs")
	assert.Equal(t, 0, p.ThreadCount())
}

func TestThreadPool_ThreadCountFromEndHookDuringShrink(t *testing.T) {
	var p *ThreadPool
	observed := make(chan int, 2)
	p = newPool(t, 2, WithEndHook(func(any) error {
		observed <- p.ThreadCount()
		return nil
	}))

	shrunk := make(chan error, 1)
	go func() { shrunk <- p.SetThreadCount(1) }()

	select {
	case err := <-shrunk:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("SetThreadCount did not return while an end hook read the thread count")
	}
	assert.Equal(t, 2, <-observed)
	assert.Equal(t, 1, p.ThreadCount())
	assert.Equal(t, 1, p.ThreadCountUnlocked())
}

func TestThreadPool_SetThreadCountFromWorkerIsRefused(t *testing.T) {
	p := newPool(t, 2)
	q := newQueue(t, p)

	errCh := make(chan error, 2)
	require.NoError(t, q.Push(Task{Func: func(any) {
		errCh <- p.SetThreadCount(1)
		errCh <- p.Close()
	}}))
	q.WaitForTasks()

	require.ErrorIs(t, <-errCh, api.ErrPermission)
	require.ErrorIs(t, <-errCh, api.ErrPermission)
	assert.Equal(t, 2, p.ThreadCount())
}

func TestThreadPool_CloseRequiresQueuesClosed(t *testing.T) {
	p, err := NewThreadPool(2)
	require.NoError(t, err)
	q, err := NewTaskQueue(p)
	require.NoError(t, err)

	require.ErrorIs(t, p.Close(), api.ErrBusy)
	assert.Equal(t, 2, p.ThreadCount())

	require.NoError(t, q.Close())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.ThreadCount())

	require.ErrorIs(t, p.SetThreadCount(3), api.ErrClosed)
	_, err = NewTaskQueue(p)
	require.ErrorIs(t, err, api.ErrClosed)
}

func TestThreadPool_Hooks(t *testing.T) {
	type hookData struct {
		mu     sync.Mutex
		starts int
		ends   int
	}
	data := &hookData{}
	hook := func(field func(*hookData) *int) HookFunc {
		return func(userData any) error {
			d := userData.(*hookData)
			d.mu.Lock()
			*field(d)++
			d.mu.Unlock()
			return nil
		}
	}

	p, err := NewThreadPool(3,
		WithHookUserData(data),
		WithStartHook(hook(func(d *hookData) *int { return &d.starts })),
		WithEndHook(hook(func(d *hookData) *int { return &d.ends })),
	)
	require.NoError(t, err)
	require.NoError(t, p.SetThreadCount(5))
	require.NoError(t, p.SetThreadCount(2))

	data.mu.Lock()
	assert.Equal(t, 3, data.ends, "shrunk workers run their end hook before SetThreadCount returns")
	data.mu.Unlock()

	require.NoError(t, p.Close())
	assert.Equal(t, 5, data.starts)
	assert.Equal(t, 5, data.ends)
}

func TestThreadPool_StartHookFailureIsFatal(t *testing.T) {
	var fatalErrs []error
	var mu sync.Mutex
	prev := fatal
	fatal = func(_ log.Logger, err error) {
		mu.Lock()
		fatalErrs = append(fatalErrs, err)
		mu.Unlock()
	}
	t.Cleanup(func() { fatal = prev })

	cause := errors.New("no device context")
	p, err := NewThreadPool(2, WithStartHook(func(any) error { return cause }))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fatalErrs, 2)
	for _, err := range fatalErrs {
		assert.ErrorIs(t, err, cause)
	}
}

func TestThreadPool_PanickingTaskKeepsWorkerAlive(t *testing.T) {
	p := newPool(t, 1)
	q := newQueue(t, p)

	var ran atomic.Int32
	require.NoError(t, q.PushBatch([]Task{
		{Func: func(any) { panic("boom") }},
		{Func: func(any) { ran.Inc() }},
	}))
	q.WaitForTasks()

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.taskPanics))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.tasksExecuted))
	assert.Equal(t, 1, p.ThreadCount())
}

func TestThreadPool_AffinityOption(t *testing.T) {
	p := newPool(t, 2, WithAffinity(true))
	q := newQueue(t, p)

	var ran atomic.Int32
	require.NoError(t, q.Push(Task{Func: func(any) { ran.Inc() }}))
	q.WaitForTasks()
	assert.Equal(t, int32(1), ran.Load())
}

func TestSizingHelpers(t *testing.T) {
	assert.GreaterOrEqual(t, FullThreadCount(), 1)
	assert.GreaterOrEqual(t, DefaultThreadCount(), 1)
	assert.LessOrEqual(t, DefaultThreadCount(), FullThreadCount()+1)
}
