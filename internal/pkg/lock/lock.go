// Package lock provides per-player locking for read-modify-write cycles
// against player records.
package lock

import (
	"context"
	"sync"
)

// entry is a one-slot semaphore. A buffered channel lets waiters give up
// on context cancellation without leaking a goroutine holding the lock.
type entry struct {
	ch   chan struct{}
	refs int
}

// UserLock hands out one lock per user ID. Entries are dropped once no
// goroutine holds or waits on them.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*entry)}
}

func (ul *UserLock) acquire(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.locks[userID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		ul.locks[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) release(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Unlock releases the user's lock. Unlocking a user that is not locked panics.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked user")
	}
	<-e.ch
	ul.release(userID, e)
}

// LockContext waits for the lock until ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	e := ul.acquire(userID)
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID, e)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}
