package lock

import (
	"context"
	"sync"
)

// MemoryLock implements Locker for a single process. Holders are tracked
// per name; waiters block on a channel closed at release.
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]chan struct{})}
}

func (l *MemoryLock) ProbeAvailable(ctx context.Context, name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.held[name]
	return !taken
}

func (l *MemoryLock) WaitUntilAvailable(ctx context.Context, name string) error {
	for {
		l.mu.Lock()
		ch, taken := l.held[name]
		l.mu.Unlock()
		if !taken {
			return nil
		}
		select {
		case <-ch:
			// released, loop to confirm nobody re-acquired
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *MemoryLock) Acquire(ctx context.Context, name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[name]; taken {
		return false
	}
	l.held[name] = make(chan struct{})
	return true
}

func (l *MemoryLock) Release(ctx context.Context, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, taken := l.held[name]; taken {
		close(ch)
		delete(l.held, name)
	}
}
