package services

import "sync"

// leaseLocks serializes invoice-set mutations per lease within one process.
// Row locks on the lease cover the multi-process case on PostgreSQL.
type leaseLocks struct {
	mu    sync.Mutex
	locks map[uint]*leaseLock
}

type leaseLock struct {
	mu   sync.Mutex
	refs int
}

func newLeaseLocks() *leaseLocks {
	return &leaseLocks{locks: make(map[uint]*leaseLock)}
}

// Lock blocks until the lease is free and returns its unlock func.
func (l *leaseLocks) Lock(leaseID uint) func() {
	l.mu.Lock()
	lk, ok := l.locks[leaseID]
	if !ok {
		lk = &leaseLock{}
		l.locks[leaseID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, leaseID)
		}
		l.mu.Unlock()
	}
}
