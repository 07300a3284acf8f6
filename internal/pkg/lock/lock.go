// Package lock provides per-user mutual exclusion.
// Game dispatch and voice accrual both serialize on the user ID so that one
// user's session or carry bookkeeping is never updated by two callers at once.
package lock

import (
	"context"
	"errors"
	"sync"
)

// entry is a one-slot semaphore shared by every caller waiting on the same key.
type entry struct {
	sem  chan struct{}
	refs int
}

// UserLock hands out one lock per user ID. Entries are dropped once no caller
// holds or waits on them, so the map only grows with concurrently active users.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (ul *UserLock) acquire(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) release(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	e := ul.acquire(userID)
	e.sem <- struct{}{}
}

// Unlock releases the user's lock. Unlocking a user that is not locked panics,
// matching sync.Mutex.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked user")
	}
	select {
	case <-e.sem:
	default:
		panic("lock: unlock of unlocked user")
	}
	ul.release(userID, e)
}

// TryLock acquires the lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	e := ul.acquire(userID)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		ul.release(userID, e)
		return false
	}
}

// LockContext waits for the lock until ctx is done.
// It returns ErrLockTimeout (wrapping the context error) when ctx expires first.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	e := ul.acquire(userID)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID, e)
		return errors.Join(ErrLockTimeout, ctx.Err())
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, giving up if ctx
// is done before the lock is acquired.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, fn func() error) error {
	if err := ul.LockContext(ctx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// IsLocked reports whether the user's lock is currently held.
// The answer may be stale by the time the caller acts on it.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	return ok && len(e.sem) == 1
}

// Len returns the number of users with a held or awaited lock.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}
