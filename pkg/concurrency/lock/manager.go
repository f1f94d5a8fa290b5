package lock

import (
	"storedb/pkg/config"
	dberror "storedb/pkg/error"
	"storedb/pkg/logging"
	"storedb/pkg/primitives"
	"sync"
	"time"
)

// pageKey is the comparable map key derived from a primitives.PageID. PageID
// values are interfaces backed by pointers, so two PageIDs describing the
// same physical page are not necessarily the same Go value; pageKey gives
// the lock table a stable identity to index by.
type pageKey struct {
	table primitives.TableID
	page  primitives.PageNumber
}

func keyOf(pid primitives.PageID) pageKey {
	return pageKey{table: pid.GetTableID(), page: pid.PageNo()}
}

// Manager grants and releases page-granularity shared/exclusive locks using
// bounded-retry acquisition: a request that cannot be granted immediately
// sleeps and retries a fixed number of times before the caller's transaction
// is aborted. There is no deadlock graph - two transactions stuck waiting on
// each other both eventually exhaust their retries and abort.
type Manager struct {
	mutex      sync.Mutex
	locks      map[pageKey][]*Lock
	byTxn      map[primitives.TransactionID]map[pageKey]struct{}
	retryLimit int
	retrySleep time.Duration
	logger     logging.Logger
}

// NewManager constructs a lock manager using the retry limit and sleep
// interval from cfg.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		locks:      make(map[pageKey][]*Lock),
		byTxn:      make(map[primitives.TransactionID]map[pageKey]struct{}),
		retryLimit: cfg.LockRetryLimit,
		retrySleep: cfg.LockRetrySleep,
		logger:     logging.Nop(),
	}
}

// WithLogger attaches the structured logger used to report retry exhaustion
// and the resulting forced abort. Returns the manager for chaining.
func (m *Manager) WithLogger(l logging.Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// AcquireLock grants tid a lock of lockType on pid, retrying up to the
// configured limit if the lock cannot be granted immediately. Returns a
// TransactionAborted error once retries are exhausted.
func (m *Manager) AcquireLock(tid primitives.TransactionID, pid primitives.PageID, lockType LockType) error {
	key := keyOf(pid)

	for attempt := 0; attempt <= m.retryLimit; attempt++ {
		m.mutex.Lock()
		if m.tryGrantLocked(tid, key, lockType) {
			m.mutex.Unlock()
			return nil
		}
		m.mutex.Unlock()

		if attempt == m.retryLimit {
			break
		}
		time.Sleep(m.retrySleep)
	}

	m.logger.Warnw("lock retry limit exceeded, aborting transaction",
		"tid", tid, "page", pid.String(), "requested", lockType.String())
	return dberror.TransactionAborted("lock retry limit exceeded on page " + pid.String())
}

// tryGrantLocked attempts to grant the lock without blocking. Must be called
// with mutex held.
func (m *Manager) tryGrantLocked(tid primitives.TransactionID, key pageKey, lockType LockType) bool {
	holders := m.locks[key]

	if held, ok := m.heldTypeLocked(tid, key); ok {
		if held == ExclusiveLock || lockType == SharedLock {
			return true
		}
		// held == SharedLock, want ExclusiveLock: upgrade iff sole holder.
		if len(holders) == 1 {
			holders[0].LockType = ExclusiveLock
			return true
		}
		return false
	}

	if lockType == ExclusiveLock {
		if len(holders) > 0 {
			return false
		}
	} else {
		for _, l := range holders {
			if l.LockType == ExclusiveLock {
				return false
			}
		}
	}

	m.grantLocked(tid, key, lockType)
	return true
}

func (m *Manager) heldTypeLocked(tid primitives.TransactionID, key pageKey) (LockType, bool) {
	for _, l := range m.locks[key] {
		if l.TID == tid {
			return l.LockType, true
		}
	}
	return SharedLock, false
}

func (m *Manager) grantLocked(tid primitives.TransactionID, key pageKey, lockType LockType) {
	m.locks[key] = append(m.locks[key], NewLock(tid, lockType))

	if m.byTxn[tid] == nil {
		m.byTxn[tid] = make(map[pageKey]struct{})
	}
	m.byTxn[tid][key] = struct{}{}
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (m *Manager) HoldsLock(tid primitives.TransactionID, pid primitives.PageID) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.heldTypeLocked(tid, keyOf(pid))
	return ok
}

// ReleasePage releases whatever lock tid holds on pid, if any.
func (m *Manager) ReleasePage(tid primitives.TransactionID, pid primitives.PageID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.releaseLocked(tid, keyOf(pid))
}

func (m *Manager) releaseLocked(tid primitives.TransactionID, key pageKey) {
	remaining := m.locks[key][:0]
	for _, l := range m.locks[key] {
		if l.TID != tid {
			remaining = append(remaining, l)
		}
	}
	if len(remaining) == 0 {
		delete(m.locks, key)
	} else {
		m.locks[key] = remaining
	}

	if pages, ok := m.byTxn[tid]; ok {
		delete(pages, key)
		if len(pages) == 0 {
			delete(m.byTxn, tid)
		}
	}
}

// ReleaseAll releases every lock tid holds, as required at transaction
// commit or abort.
func (m *Manager) ReleaseAll(tid primitives.TransactionID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keys := make([]pageKey, 0, len(m.byTxn[tid]))
	for key := range m.byTxn[tid] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		m.releaseLocked(tid, key)
	}

	delete(m.byTxn, tid)
}
