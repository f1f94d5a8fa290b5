// Package bufferpool caches heap pages in memory and mediates every access
// to them through the lock manager, so that transactions see a consistent
// view of the pages they've touched and page-level isolation holds.
package bufferpool

import (
	"container/list"
	"storedb/pkg/concurrency/lock"
	"storedb/pkg/config"
	dberror "storedb/pkg/error"
	"storedb/pkg/logging"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
	"storedb/pkg/txnlog"
	"sync"
)

// Catalog is the subset of the table registry the buffer pool needs to
// resolve a page id to the file it should be read from or written back to
// on eviction.
type Catalog interface {
	GetDbFile(id primitives.TableID) (page.DbFile, error)
}

type pageKey struct {
	table primitives.TableID
	page  primitives.PageNumber
}

func keyOf(pid primitives.PageID) pageKey {
	return pageKey{table: pid.GetTableID(), page: pid.PageNo()}
}

// entry is a single page cache slot, held in the LRU list.
type entry struct {
	pid  primitives.PageID
	page page.Page
}

// BufferPool is the fixed-capacity page cache shared by every transaction.
// Pages are fetched through GetPage under the appropriate lock and evicted
// under a NO-STEAL policy: a dirty page is never written to disk before its
// owning transaction commits, so eviction only ever targets a clean page.
// If every resident page is dirty, eviction fails rather than forcing a
// dirty page's before-image onto disk out from under an active transaction.
type BufferPool struct {
	mutex    sync.Mutex
	capacity int
	cache    map[pageKey]*list.Element // LRU order, most-recent at Front
	order    *list.List
	catalog  Catalog
	locks    *lock.Manager
	dirtyBy  map[pageKey]primitives.TransactionID
	log      txnlog.Logger
	logger   logging.Logger
}

func NewBufferPool(cfg *config.Config, catalog Catalog, locks *lock.Manager) *BufferPool {
	return &BufferPool{
		capacity: cfg.BufferPoolCapacity,
		cache:    make(map[pageKey]*list.Element),
		order:    list.New(),
		catalog:  catalog,
		locks:    locks,
		dirtyBy:  make(map[pageKey]primitives.TransactionID),
		log:      txnlog.NewNopLogger(),
		logger:   logging.Nop(),
	}
}

// WithLog attaches the durability log the pool writes before-images through
// at commit flush. Returns the pool for chaining at construction time.
func (bp *BufferPool) WithLog(l txnlog.Logger) *BufferPool {
	if l != nil {
		bp.log = l
	}
	return bp
}

// WithLogger attaches the structured logger used for operational events
// (eviction, abort, commit). Returns the pool for chaining.
func (bp *BufferPool) WithLogger(l logging.Logger) *BufferPool {
	if l != nil {
		bp.logger = l
	}
	return bp
}

// GetPage returns the page identified by pid, acquiring a shared or
// exclusive lock on it first depending on perm. The page is read from its
// backing file on a cache miss, evicting a clean page if the pool is full.
func (bp *BufferPool) GetPage(tid primitives.TransactionID, pid primitives.PageID, perm page.Permission) (page.Page, error) {
	lockType := lock.SharedLock
	if perm == page.ReadWrite {
		lockType = lock.ExclusiveLock
	}
	if err := bp.locks.AcquireLock(tid, pid, lockType); err != nil {
		return nil, err
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	key := keyOf(pid)
	if el, ok := bp.cache[key]; ok {
		bp.order.MoveToFront(el)
		return el.Value.(*entry).page, nil
	}

	if err := bp.makeRoomLocked(); err != nil {
		return nil, err
	}

	file, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return nil, err
	}
	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, err
	}

	el := bp.order.PushFront(&entry{pid: pid, page: p})
	bp.cache[key] = el
	return p, nil
}

// makeRoomLocked evicts the least-recently-used clean page if the pool is
// at capacity. Must be called with mutex held.
func (bp *BufferPool) makeRoomLocked() error {
	if len(bp.cache) < bp.capacity {
		return nil
	}

	for el := bp.order.Back(); el != nil; el = el.Prev() {
		ent := el.Value.(*entry)
		key := keyOf(ent.pid)
		if _, dirty := bp.dirtyBy[key]; dirty {
			continue
		}
		bp.order.Remove(el)
		delete(bp.cache, key)
		bp.logger.Debugw("evicted page", "page", ent.pid.String())
		return nil
	}

	bp.logger.Warnw("buffer pool full, no clean page to evict", "capacity", bp.capacity)
	return dberror.IllegalArgument("buffer pool full: every resident page is dirty, no page can be evicted")
}

// MarkDirty records that tid has modified p, so that eviction leaves it
// resident until commit or abort. Called by callers (heap file inserts and
// deletes) immediately after mutating a page fetched through GetPage.
func (bp *BufferPool) MarkDirty(tid primitives.TransactionID, p page.Page) {
	p.MarkDirty(true, &tid)

	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	bp.dirtyBy[keyOf(p.GetID())] = tid
}

// FlushPage forces a single page to its backing file on behalf of tid,
// appending a before-image record to the durability log first.
func (bp *BufferPool) FlushPage(tid primitives.TransactionID, pid primitives.PageID) error {
	bp.mutex.Lock()
	el, ok := bp.cache[keyOf(pid)]
	bp.mutex.Unlock()
	if !ok {
		return nil
	}

	p := el.Value.(*entry).page
	if p.IsDirty() == nil {
		return nil
	}

	if err := bp.log.LogWrite(tid, p); err != nil {
		return err
	}

	file, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return err
	}
	p.SetBeforeImage()

	bp.mutex.Lock()
	delete(bp.dirtyBy, keyOf(pid))
	bp.mutex.Unlock()
	return nil
}

// CommitTransaction flushes every page tid dirtied, refreshes their
// before-images, and releases tid's locks. Flushing happens before locks are
// released so no other transaction can observe a page this one has logically
// committed but not yet persisted.
func (bp *BufferPool) CommitTransaction(tid primitives.TransactionID) error {
	dirtied := bp.dirtiedBy(tid)
	for _, pid := range dirtied {
		if err := bp.FlushPage(tid, pid); err != nil {
			return err
		}
	}
	if err := bp.log.LogCommit(tid); err != nil {
		return err
	}
	if err := bp.log.Force(); err != nil {
		return err
	}
	bp.locks.ReleaseAll(tid)
	bp.logger.Infow("transaction committed", "tid", tid, "pagesFlushed", len(dirtied))
	return nil
}

// AbortTransaction discards every page tid dirtied from the cache, so a
// subsequent read goes back to the backing file and observes none of tid's
// uncommitted writes, then releases tid's locks.
func (bp *BufferPool) AbortTransaction(tid primitives.TransactionID) {
	bp.mutex.Lock()
	discarded := bp.keysDirtiedByLocked(tid)
	for _, key := range discarded {
		if el, ok := bp.cache[key]; ok {
			bp.order.Remove(el)
			delete(bp.cache, key)
		}
		delete(bp.dirtyBy, key)
	}
	bp.mutex.Unlock()

	_ = bp.log.LogAbort(tid)
	bp.locks.ReleaseAll(tid)
	bp.logger.Infow("transaction aborted", "tid", tid, "pagesDiscarded", len(discarded))
}

func (bp *BufferPool) dirtiedBy(tid primitives.TransactionID) []primitives.PageID {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	pids := make([]primitives.PageID, 0)
	for key, owner := range bp.dirtyBy {
		if owner != tid {
			continue
		}
		if el, ok := bp.cache[key]; ok {
			pids = append(pids, el.Value.(*entry).pid)
		}
	}
	return pids
}

func (bp *BufferPool) keysDirtiedByLocked(tid primitives.TransactionID) []pageKey {
	keys := make([]pageKey, 0)
	for key, owner := range bp.dirtyBy {
		if owner == tid {
			keys = append(keys, key)
		}
	}
	return keys
}

// InsertTuple adds t to the table identified by tableID on behalf of tid.
// The heap file picks the target page (acquiring it exclusively through this
// pool) and the mutated page is left dirty in the cache; durability comes
// from the commit-time flush, never before.
func (bp *BufferPool) InsertTuple(tid primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	hf, err := bp.heapFile(tableID)
	if err != nil {
		return err
	}
	_, err = hf.InsertTuple(tid, bp, t)
	return err
}

// DeleteTuple removes t from its table on behalf of tid, locating the page
// through t's RecordID.
func (bp *BufferPool) DeleteTuple(tid primitives.TransactionID, t *tuple.Tuple) error {
	if t.RecordID == nil {
		return dberror.IllegalArgument("tuple has no record id, cannot locate its page")
	}
	hf, err := bp.heapFile(t.RecordID.PageID.GetTableID())
	if err != nil {
		return err
	}
	_, err = hf.DeleteTuple(tid, bp, t)
	return err
}

func (bp *BufferPool) heapFile(tableID primitives.TableID) (*heap.HeapFile, error) {
	file, err := bp.catalog.GetDbFile(tableID)
	if err != nil {
		return nil, err
	}
	hf, ok := file.(*heap.HeapFile)
	if !ok {
		return nil, dberror.IllegalArgument("table is not backed by a heap file")
	}
	return hf, nil
}

// FlushAllPages writes every dirty page in the cache to its backing file,
// regardless of owning transaction. Intended for orderly shutdown and for
// tests that need to observe on-disk state; it deliberately breaks NO-STEAL,
// so it must never run while transactions are active.
func (bp *BufferPool) FlushAllPages() error {
	bp.mutex.Lock()
	dirty := make(map[pageKey]primitives.TransactionID, len(bp.dirtyBy))
	for key, owner := range bp.dirtyBy {
		dirty[key] = owner
	}
	bp.mutex.Unlock()

	for key, owner := range dirty {
		if err := bp.FlushPage(owner, page.NewPageDescriptor(key.table, key.page)); err != nil {
			return err
		}
	}
	return nil
}

// DiscardPage evicts pid from the cache unconditionally, without flushing
// it. Used when a page is deleted or truncated out from under the pool.
func (bp *BufferPool) DiscardPage(pid primitives.PageID) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	key := keyOf(pid)
	if el, ok := bp.cache[key]; ok {
		bp.order.Remove(el)
		delete(bp.cache, key)
	}
	delete(bp.dirtyBy, key)
}
