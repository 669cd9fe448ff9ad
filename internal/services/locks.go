package services

import "sync"

// SyncLockRegistry serializes syncs per account within this process. Locks
// are advisory and non-blocking: a second sync for the same account fails
// fast instead of queueing. The registry does not protect against a second
// process on the same database.
type SyncLockRegistry struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

// NewSyncLockRegistry returns an empty registry.
func NewSyncLockRegistry() *SyncLockRegistry {
	return &SyncLockRegistry{held: make(map[uint]struct{})}
}

// TryAcquire takes the lock for accountID, reporting false when it is
// already held.
func (r *SyncLockRegistry) TryAcquire(accountID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[accountID]; ok {
		return false
	}
	r.held[accountID] = struct{}{}
	return true
}

// Release frees the lock for accountID. Releasing an unheld lock is a no-op.
func (r *SyncLockRegistry) Release(accountID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, accountID)
}

// Held reports whether a sync currently holds the lock for accountID.
func (r *SyncLockRegistry) Held(accountID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[accountID]
	return ok
}
