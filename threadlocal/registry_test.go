package threadlocal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/momentics/hioload-sync/api"
	"github.com/momentics/hioload-sync/internal/concurrency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type resource struct{ id int }

type cleanupLog struct {
	mu     sync.Mutex
	counts map[*resource]int
}

func newCleanupLog() *cleanupLog {
	return &cleanupLog{counts: make(map[*resource]int)}
}

func (c *cleanupLog) cleanup(obj any) {
	c.mu.Lock()
	c.counts[obj.(*resource)]++
	c.mu.Unlock()
}

func (c *cleanupLog) count(r *resource) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[r]
}

func (c *cleanupLog) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

var backends = map[string]func() backend{
	"native":  func() backend { return nativeBackend{} },
	"tracked": func() backend { return &trackedBackend{} },
}

// forEachBackend runs fn against both strategies regardless of build tags.
func forEachBackend(t *testing.T, fn func(t *testing.T, reg *Registry, log *cleanupLog)) {
	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			log := newCleanupLog()
			reg, err := newRegistry(log.cleanup, mk())
			require.NoError(t, err)
			assert.Equal(t, name, reg.Backend())
			fn(t, reg, log)
		})
	}
}

// onThread runs fn on a fresh managed thread and waits for the thread to exit.
func onThread(fn func()) {
	concurrency.Go(fn).Join()
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	reg, err := New(func(any) {})
	require.NoError(t, err)
	assert.Contains(t, []string{"native", "tracked"}, reg.Backend())
	require.NoError(t, reg.Destroy())
}

func TestRegistry_CleanupOnThreadExit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		r := &resource{id: 1}
		onThread(func() {
			assert.Nil(t, reg.Get())
			assert.NoError(t, reg.Set(r))
			assert.Same(t, r, reg.Get())
		})
		assert.Equal(t, 1, log.count(r))
		assert.Zero(t, reg.Threads())

		require.NoError(t, reg.Destroy())
		assert.Equal(t, 1, log.count(r), "destroy must not clean an exited thread again")
	})
}

func TestRegistry_TakeTransfersOwnership(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		r := &resource{id: 2}
		var taken any
		onThread(func() {
			assert.NoError(t, reg.Set(r))
			taken = reg.Take()
			assert.Nil(t, reg.Get())
			assert.Nil(t, reg.Take())
		})
		assert.Same(t, r, taken)
		assert.Zero(t, log.total())
		require.NoError(t, reg.Destroy())
		assert.Zero(t, log.total())
	})
}

func TestRegistry_SetReplacesAndCleansOld(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		first, second := &resource{id: 3}, &resource{id: 4}
		onThread(func() {
			assert.NoError(t, reg.Set(first))
			assert.NoError(t, reg.Set(first))
			assert.Zero(t, log.count(first), "re-setting the same object is a no-op")

			assert.NoError(t, reg.Set(second))
			assert.Equal(t, 1, log.count(first))
			assert.Same(t, second, reg.Get())
		})
		assert.Equal(t, 1, log.count(first))
		assert.Equal(t, 1, log.count(second))
		require.NoError(t, reg.Destroy())
	})
}

func TestRegistry_ObjectsAreThreadAffine(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		const threads = 16
		res := make([]*resource, threads)
		var wg sync.WaitGroup
		for i := 0; i < threads; i++ {
			res[i] = &resource{id: i}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				onThread(func() {
					for j := 0; j < 100; j++ {
						if reg.Get() == nil {
							assert.NoError(t, reg.Set(res[i]))
						}
						assert.Same(t, res[i], reg.Get())
					}
				})
			}(i)
		}
		wg.Wait()
		for _, r := range res {
			assert.Equal(t, 1, log.count(r))
		}
		require.NoError(t, reg.Destroy())
	})
}

func TestRegistry_DestroyCleansLiveThreads(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		const threads = 4
		res := make([]*resource, threads)
		ready := make(chan struct{}, threads)
		release := make(chan struct{})
		var handles []*concurrency.Thread
		for i := 0; i < threads; i++ {
			res[i] = &resource{id: i}
			r := res[i]
			handles = append(handles, concurrency.Go(func() {
				assert.NoError(t, reg.Set(r))
				ready <- struct{}{}
				<-release
			}))
		}
		for i := 0; i < threads; i++ {
			<-ready
		}
		assert.Equal(t, threads, reg.Threads())

		require.NoError(t, reg.Destroy())
		for _, r := range res {
			assert.Equal(t, 1, log.count(r))
		}

		close(release)
		for _, h := range handles {
			h.Join()
		}
		assert.Equal(t, threads, log.total(), "exiting threads must not clean objects again")

		require.ErrorIs(t, reg.Destroy(), api.ErrClosed)
		require.ErrorIs(t, reg.Set(&resource{}), api.ErrClosed)
	})
}

func TestRegistry_SetNilClearsSlot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, reg *Registry, log *cleanupLog) {
		r := &resource{id: 5}
		onThread(func() {
			assert.NoError(t, reg.Set(nil))
			assert.Nil(t, reg.Get())
			assert.NoError(t, reg.Set(r))
			assert.NoError(t, reg.Set(nil))
			assert.Equal(t, 1, log.count(r))
			assert.Nil(t, reg.Get())
		})
		assert.Equal(t, 1, log.count(r))
		require.NoError(t, reg.Destroy())
	})
}

func TestSameObject(t *testing.T) {
	assert.True(t, sameObject(1, 1))
	assert.False(t, sameObject([]int{1}, []int{1}))
}
