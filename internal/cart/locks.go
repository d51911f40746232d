package cart

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// productLocks hands out one weight-1 semaphore per product id. Entries are
// reference counted and dropped once nobody holds or waits on them.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*productLock
}

type productLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*productLock)}
}

func (l *productLocks) acquire(ctx context.Context, productID string) error {
	l.mu.Lock()
	lock, ok := l.locks[productID]
	if !ok {
		lock = &productLock{sem: semaphore.NewWeighted(1)}
		l.locks[productID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.unref(productID, lock)
		return err
	}
	return nil
}

func (l *productLocks) release(productID string) {
	l.mu.Lock()
	lock, ok := l.locks[productID]
	l.mu.Unlock()
	if !ok {
		return
	}
	lock.sem.Release(1)
	l.unref(productID, lock)
}

func (l *productLocks) unref(productID string, lock *productLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, productID)
	}
}

func (l *productLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
