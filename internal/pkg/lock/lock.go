// Package lock provides per-account in-process locks.
// The front-end uses them to keep one logical request in flight per user.
// Ledger consistency does not depend on these locks, the database does that.
package lock

import (
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// AccountLock hands out one mutex per account id. Entries are dropped
// once nobody holds or waits on them, so the map does not grow with
// the number of accounts ever seen.
type AccountLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// New creates an empty AccountLock.
func New() *AccountLock {
	return &AccountLock{entries: make(map[int64]*entry)}
}

func (l *AccountLock) acquire(id int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &entry{}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *AccountLock) release(id int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// Lock blocks until the account's lock is held.
func (l *AccountLock) Lock(id int64) {
	e := l.acquire(id)
	e.mu.Lock()
}

// Unlock releases the account's lock. Unlocking an account that is not
// locked is a no-op.
func (l *AccountLock) Unlock(id int64) {
	l.mu.Lock()
	e, ok := l.entries[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	l.release(id, e)
}

// TryLock acquires the lock without blocking and reports whether it did.
func (l *AccountLock) TryLock(id int64) bool {
	e := l.acquire(id)
	if e.mu.TryLock() {
		return true
	}
	l.release(id, e)
	return false
}

// WithLock runs fn while holding the account's lock.
func (l *AccountLock) WithLock(id int64, fn func() error) error {
	l.Lock(id)
	defer l.Unlock(id)
	return fn()
}

// Guard runs fn only if the account is idle, returning ErrBusy otherwise.
func (l *AccountLock) Guard(id int64, fn func() error) error {
	if !l.TryLock(id) {
		return ErrBusy
	}
	defer l.Unlock(id)
	return fn()
}

// Len returns the number of accounts currently locked or waited on.
func (l *AccountLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
