package lock

import (
	"context"
	"sync"
	"time"

	"github.com/moodplate/engine/internal/ports/outbound"
)

// MemoryLocker implements outbound.Locker inside one process. It mirrors
// the Redis locker's semantics: bounded wait, soft failure, no retry after
// the budget.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]chan struct{})}
}

// Acquire takes the named lock or reports ok=false after wait. The ttl is
// ignored: an in-process holder always releases explicitly or dies with
// the process.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration, wait time.Duration) (outbound.ReleaseFunc, bool, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		l.mu.Lock()
		holder, held := l.locks[key]
		if !held {
			done := make(chan struct{})
			l.locks[key] = done
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(done)
				})
			}, true, nil
		}
		l.mu.Unlock()

		select {
		case <-holder:
			// Holder released; race for the lock again.
		case <-deadline.C:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
