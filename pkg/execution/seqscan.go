package execution

import (
	"fmt"

	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
)

// Catalog is the subset of the table registry execution operators need:
// resolve a table id to its backing file and schema. The buffer pool
// defines its own, narrower Catalog interface for the same underlying type;
// this one additionally exposes GetTupleDesc for operators built above the
// scan.
type Catalog interface {
	GetDbFile(id primitives.TableID) (page.DbFile, error)
	GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error)
}

// SeqScan is the leaf operator that pulls every tuple of one table, in
// page-number order, through the buffer pool under the scanning
// transaction's locks.
type SeqScan struct {
	base      *BaseIterator
	tid       primitives.TransactionID
	tableID   primitives.TableID
	pool      heap.PagePool
	catalog   Catalog
	tupleDesc *tuple.TupleDescription
	fileIter  *heap.FileIterator
}

// NewSeqScan builds a scan of tableID under tid. The underlying file
// iterator is not created until Open.
func NewSeqScan(tid primitives.TransactionID, tableID primitives.TableID, catalog Catalog, pool heap.PagePool) (*SeqScan, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("page pool cannot be nil")
	}

	td, err := catalog.GetTupleDesc(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tuple desc for table %d: %w", tableID, err)
	}

	ss := &SeqScan{
		tid:       tid,
		tableID:   tableID,
		catalog:   catalog,
		pool:      pool,
		tupleDesc: td,
	}
	ss.base = NewBaseIterator(ss.readNext)
	return ss, nil
}

func (ss *SeqScan) Open() error {
	dbFile, err := ss.catalog.GetDbFile(ss.tableID)
	if err != nil {
		return fmt.Errorf("failed to get db file for table %d: %w", ss.tableID, err)
	}
	hf, ok := dbFile.(*heap.HeapFile)
	if !ok {
		return fmt.Errorf("table %d is not backed by a heap file", ss.tableID)
	}

	ss.fileIter = hf.Iterator(ss.tid, ss.pool)
	if err := ss.fileIter.Open(); err != nil {
		return fmt.Errorf("failed to open file iterator: %w", err)
	}

	ss.base.MarkOpened()
	return nil
}

func (ss *SeqScan) readNext() (*tuple.Tuple, error) {
	if ss.fileIter == nil {
		return nil, fmt.Errorf("file iterator not initialized")
	}

	hasNext, err := ss.fileIter.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}
	return ss.fileIter.Next()
}

func (ss *SeqScan) GetTupleDesc() *tuple.TupleDescription {
	return ss.tupleDesc
}

func (ss *SeqScan) Close() error {
	if ss.fileIter != nil {
		ss.fileIter.Close()
		ss.fileIter = nil
	}
	return ss.base.Close()
}

func (ss *SeqScan) Rewind() error {
	if ss.fileIter == nil {
		return ss.Open()
	}
	if err := ss.fileIter.Rewind(); err != nil {
		return err
	}
	ss.base.ClearCache()
	return nil
}

func (ss *SeqScan) HasNext() (bool, error)      { return ss.base.HasNext() }
func (ss *SeqScan) Next() (*tuple.Tuple, error) { return ss.base.Next() }
