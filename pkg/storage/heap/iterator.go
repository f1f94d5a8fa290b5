package heap

import (
	"fmt"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
)

// FileIterator sequentially scans every tuple in a HeapFile, page by page,
// acquiring each page read-only through a PagePool. Rewind is equivalent to
// Close followed by Open: it re-fetches page 0 and starts over.
type FileIterator struct {
	file       *HeapFile
	tid        primitives.TransactionID
	pool       PagePool
	pageNo     primitives.PageNumber
	numPages   primitives.PageNumber
	tuples     []*tuple.Tuple
	tupleIdx   int
	opened     bool
}

func newFileIterator(file *HeapFile, tid primitives.TransactionID, pool PagePool) *FileIterator {
	return &FileIterator{file: file, tid: tid, pool: pool}
}

// Open positions the iterator at the first tuple of the first page.
func (it *FileIterator) Open() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}
	it.numPages = numPages
	it.pageNo = 0
	it.tuples = nil
	it.tupleIdx = 0
	it.opened = true
	return it.loadUntilNonEmpty()
}

// loadUntilNonEmpty advances pageNo until it lands on a page with at least
// one tuple, or exhausts the file.
func (it *FileIterator) loadUntilNonEmpty() error {
	for it.pageNo < it.numPages {
		pid := page.NewPageDescriptor(it.file.tableID, it.pageNo)
		p, err := it.pool.GetPage(it.tid, pid, page.ReadOnly)
		if err != nil {
			return err
		}

		hp, ok := p.(*HeapPage)
		if !ok {
			return fmt.Errorf("unexpected page type in heap file")
		}

		it.tuples = hp.GetTuples()
		it.tupleIdx = 0
		it.pageNo++

		if len(it.tuples) > 0 {
			return nil
		}
	}
	it.tuples = nil
	return nil
}

// HasNext reports whether another tuple remains in the scan.
func (it *FileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not open")
	}
	if it.tupleIdx < len(it.tuples) {
		return true, nil
	}
	if err := it.loadUntilNonEmpty(); err != nil {
		return false, err
	}
	return it.tupleIdx < len(it.tuples), nil
}

// Next returns the next tuple in the scan.
func (it *FileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}
	t := it.tuples[it.tupleIdx]
	it.tupleIdx++
	return t, nil
}

// Rewind restarts the scan from the first page. Equivalent to Close; Open.
func (it *FileIterator) Rewind() error {
	return it.Open()
}

// Close releases the iterator's in-memory state. It does not release any
// page locks; those belong to the owning transaction.
func (it *FileIterator) Close() {
	it.opened = false
	it.tuples = nil
	it.tupleIdx = 0
}

// GetTupleDesc returns the schema of tuples produced by this iterator.
func (it *FileIterator) GetTupleDesc() *tuple.TupleDescription {
	return it.file.GetTupleDesc()
}
