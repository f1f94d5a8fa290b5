package heap

import (
	"fmt"
	"io"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
)

// HeapFile represents a collection of pages stored in a single OS file on disk.
// It implements the page.DbFile interface and manages heap pages that store tuples
// in a row-oriented format with bitmap headers.
//
// Storage Layout:
//   - Each page is exactly page.PageSize bytes
//   - Pages are numbered sequentially starting from 0
//   - Page offsets are calculated as: pageNo * page.PageSize
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription // Schema definition for tuples in this file
	tableID   primitives.TableID
}

// PagePool is the subset of buffer pool behavior a HeapFile needs to acquire
// pages under lock before mutating them. The buffer pool package implements
// this interface; HeapFile depends only on the interface to avoid an import
// cycle between storage and buffer-pool/lock-manager code.
type PagePool interface {
	GetPage(tid primitives.TransactionID, pid primitives.PageID, perm page.Permission) (page.Page, error)
	MarkDirty(tid primitives.TransactionID, p page.Page)
}

// NewHeapFile creates a new HeapFile backed by the specified file on disk.
// The file will be created if it doesn't exist, or opened for read-write if it does.
//
// Parameters:
//   - filename: Path to the heap file on disk (cannot be empty)
//   - td: Schema definition for tuples that will be stored in this file
//
// Returns:
//   - *HeapFile: The initialized heap file
//   - error: If the filename is empty or file cannot be opened
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}

	return &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
		tableID:   primitives.NewTableIDFromFileID(baseFile.GetID()),
	}, nil
}

// GetID returns the stable table identifier for this heap file, derived from
// the hash of its absolute path. It shadows the embedded BaseFile.GetID
// (which reports the raw FileID) to satisfy page.DbFile.
func (hf *HeapFile) GetID() primitives.TableID {
	return hf.tableID
}

// GetTupleDesc returns the schema definition for tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads the specified page from disk into memory.
// This method performs physical I/O and should typically be called through
// the BufferPool rather than directly.
//
// Behavior:
//   - Returns a blank page if reading past EOF
//   - Validates that pageID matches this file's table ID
func (hf *HeapFile) ReadPage(pageID primitives.PageID) (page.Page, error) {
	heapPageID, err := hf.validateAndConvertPageID(pageID)
	if err != nil {
		return nil, err
	}

	pageData, err := hf.ReadPageData(heapPageID.PageNo())
	if err != nil {
		if err == io.EOF {
			return NewHeapPage(heapPageID, make([]byte, page.PageSize), hf.tupleDesc)
		}
		return nil, fmt.Errorf("failed to read page data: %w", err)
	}

	return NewHeapPage(heapPageID, pageData, hf.tupleDesc)
}

// validateAndConvertPageID validates that a PageID is appropriate for this HeapFile.
func (hf *HeapFile) validateAndConvertPageID(pageID primitives.PageID) (*page.PageDescriptor, error) {
	if pageID == nil {
		return nil, fmt.Errorf("page ID cannot be nil")
	}

	heapPageID, ok := pageID.(*page.PageDescriptor)
	if !ok || heapPageID == nil {
		return nil, fmt.Errorf("invalid page ID type for HeapFile")
	}

	if heapPageID.GetTableID() != hf.tableID {
		return nil, fmt.Errorf("page ID table mismatch")
	}

	return heapPageID, nil
}

// WritePage persists the given page to disk at its designated offset and
// syncs the file, then clears the page's dirty flag.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}

	if err := hf.WritePageData(p.GetID().PageNo(), p.GetPageData()); err != nil {
		return err
	}

	p.MarkDirty(false, nil)
	return nil
}

// InsertTuple scans pages in order for the first one with a free slot,
// acquiring each exclusively through pool, and inserts t there. If no page
// has room, a new empty page is appended to the file. Returns the list of
// pages mutated (always exactly one page).
func (hf *HeapFile) InsertTuple(tid primitives.TransactionID, pool PagePool, t *tuple.Tuple) ([]page.Page, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pno := primitives.PageNumber(0); pno < numPages; pno++ {
		pid := page.NewPageDescriptor(hf.tableID, pno)
		p, err := pool.GetPage(tid, pid, page.ReadWrite)
		if err != nil {
			return nil, err
		}

		hp, ok := p.(*HeapPage)
		if !ok {
			return nil, fmt.Errorf("unexpected page type in heap file")
		}

		if hp.GetNumEmptySlots() == 0 {
			continue
		}

		if err := hp.AddTuple(t); err != nil {
			return nil, err
		}
		pool.MarkDirty(tid, hp)
		return []page.Page{hp}, nil
	}

	newPageNo, err := hf.AllocateNewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to grow heap file: %w", err)
	}

	pid := page.NewPageDescriptor(hf.tableID, newPageNo)
	p, err := pool.GetPage(tid, pid, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type in heap file")
	}

	if err := hp.AddTuple(t); err != nil {
		return nil, err
	}
	pool.MarkDirty(tid, hp)
	return []page.Page{hp}, nil
}

// DeleteTuple acquires the page referenced by t's RecordID exclusively and
// deletes it there. Returns the single mutated page.
func (hf *HeapFile) DeleteTuple(tid primitives.TransactionID, pool PagePool, t *tuple.Tuple) ([]page.Page, error) {
	if t.RecordID == nil {
		return nil, fmt.Errorf("tuple has no record id")
	}

	p, err := pool.GetPage(tid, t.RecordID.PageID, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type in heap file")
	}

	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	pool.MarkDirty(tid, hp)
	return []page.Page{hp}, nil
}

// Iterator produces a lazy, restartable sequence over all tuples in the
// file in page-number order, acquiring each page read-only through pool. It
// does not release any locks itself - that is the caller's (transaction's)
// responsibility at commit/abort.
func (hf *HeapFile) Iterator(tid primitives.TransactionID, pool PagePool) *FileIterator {
	return newFileIterator(hf, tid, pool)
}
