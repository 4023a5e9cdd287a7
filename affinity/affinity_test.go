package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUForWorker(t *testing.T) {
	n := runtime.NumCPU()
	assert.Equal(t, 0, CPUForWorker(0))
	assert.Equal(t, 0, CPUForWorker(-3))
	assert.Equal(t, 0, CPUForWorker(n))
	assert.Equal(t, (n+1)%n, CPUForWorker(n+1))
}

func TestSetAndResetAffinity(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := SetAffinity(0); err != nil {
		t.Skipf("affinity unsupported here: %v", err)
	}
	require.NoError(t, ResetAffinity())
}
