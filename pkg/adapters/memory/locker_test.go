package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morabah/posalpro-app-sub013/pkg/adapters/memory"
)

func TestLocker_MutualExclusion(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "key", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.Len(), "entries are released once unused")
}

func TestLocker_ContextCancel(t *testing.T) {
	locker := memory.NewLocker()

	unlock, err := locker.Lock(context.Background(), "key", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "key", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(context.Background()))
	require.NoError(t, unlock(context.Background()), "double unlock is harmless")
	assert.Equal(t, 0, locker.Len())
}

func TestLocker_IndependentKeys(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	u1, err := locker.Lock(ctx, "a", 0)
	require.NoError(t, err)
	u2, err := locker.Lock(ctx, "b", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, locker.Len())
	_ = u1(ctx)
	_ = u2(ctx)
}
