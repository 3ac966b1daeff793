package app

import "sync"

// queueLocks hands out one mutex per (tenant, queue) pair so operations
// that must serialize per queue funnel through a single lock. Locks are
// created lazily and never released; the set of queues is small and
// long-lived.
type queueLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newQueueLocks() *queueLocks {
	return &queueLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *queueLocks) forQueue(tenantID, queueID string) *sync.Mutex {
	key := tenantID + "/" + queueID
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}
