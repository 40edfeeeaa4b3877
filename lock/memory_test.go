package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestMemoryLockAcquireRelease(t *testing.T) {
	l := NewMemoryLock()

	require.True(t, l.ProbeAvailable(ctx, "filter:page"))
	require.True(t, l.Acquire(ctx, "filter:page"))
	require.False(t, l.ProbeAvailable(ctx, "filter:page"))

	// second acquisition of a held lock fails
	require.False(t, l.Acquire(ctx, "filter:page"))

	// other names are independent
	require.True(t, l.Acquire(ctx, "filter:render"))
	l.Release(ctx, "filter:render")

	l.Release(ctx, "filter:page")
	require.True(t, l.ProbeAvailable(ctx, "filter:page"))
	require.True(t, l.Acquire(ctx, "filter:page"))
	l.Release(ctx, "filter:page")

	// releasing a lock not held is a no-op
	l.Release(ctx, "filter:page")
}

func TestMemoryLockWait(t *testing.T) {
	l := NewMemoryLock()
	require.True(t, l.Acquire(ctx, "filter:page"))

	var wg sync.WaitGroup
	acquired := false
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := l.WaitUntilAvailable(ctx, "filter:page")
		require.Nil(t, err)
		acquired = l.Acquire(ctx, "filter:page")
	}()

	time.Sleep(10 * time.Millisecond)
	l.Release(ctx, "filter:page")
	wg.Wait()
	require.True(t, acquired)
}

func TestMemoryLockWaitCancelled(t *testing.T) {
	l := NewMemoryLock()
	require.True(t, l.Acquire(ctx, "filter:page"))
	defer l.Release(ctx, "filter:page")

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := l.WaitUntilAvailable(cancelCtx, "filter:page")
	require.NotNil(t, err)
}

func TestMemoryLockWaitOnFreeLock(t *testing.T) {
	l := NewMemoryLock()
	require.Nil(t, l.WaitUntilAvailable(ctx, "filter:page"))
}
