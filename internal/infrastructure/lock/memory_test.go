package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	// Second acquisition of the same key fails softly after the wait.
	_, ok, err = l.Acquire(ctx, "k", time.Minute, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is independent.
	release2, ok, err := l.Acquire(ctx, "other", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	release2()

	release()

	// Released key is immediately available again.
	release3, ok, err := l.Acquire(ctx, "k", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	release3()
}

func TestMemoryLockerWaitsForRelease(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	// The waiter inside the budget picks the lock up after release.
	release2, ok, err := l.Acquire(ctx, "k", time.Minute, 500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestMemoryLockerReleaseIsIdempotent(t *testing.T) {
	l := NewMemoryLocker()
	release, ok, err := l.Acquire(context.Background(), "k", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	release()
	assert.NotPanics(t, func() { release() })
}

func TestMemoryLockerContextCancellation(t *testing.T) {
	l := NewMemoryLocker()
	release, ok, err := l.Acquire(context.Background(), "k", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err = l.Acquire(ctx, "k", time.Minute, time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLockerConcurrentHolders(t *testing.T) {
	l := NewMemoryLocker()
	var wg sync.WaitGroup
	var mu sync.Mutex
	holders := 0
	maxHolders := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, ok, err := l.Acquire(context.Background(), "k", time.Minute, time.Second)
			if err != nil || !ok {
				return
			}
			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxHolders)
}
