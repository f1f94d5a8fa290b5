package heap

import (
	"path/filepath"
	"testing"

	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// stubPool satisfies PagePool without any locking or eviction: pages are
// read once and kept, so mutations through it stay visible, matching what
// the heap file sees when running under the real buffer pool.
type stubPool struct {
	files map[primitives.TableID]*HeapFile
	pages map[string]page.Page
}

func newStubPool(files ...*HeapFile) *stubPool {
	sp := &stubPool{
		files: make(map[primitives.TableID]*HeapFile),
		pages: make(map[string]page.Page),
	}
	for _, f := range files {
		sp.files[f.GetID()] = f
	}
	return sp
}

func (sp *stubPool) GetPage(tid primitives.TransactionID, pid primitives.PageID, perm page.Permission) (page.Page, error) {
	key := pid.String()
	if p, ok := sp.pages[key]; ok {
		return p, nil
	}
	p, err := sp.files[pid.GetTableID()].ReadPage(pid)
	if err != nil {
		return nil, err
	}
	sp.pages[key] = p
	return p, nil
}

func (sp *stubPool) MarkDirty(tid primitives.TransactionID, p page.Page) {
	p.MarkDirty(true, &tid)
}

func tempHeapFile(t *testing.T, td *tuple.TupleDescription) *HeapFile {
	t.Helper()
	path := primitives.Filepath(filepath.Join(t.TempDir(), "table.dat"))
	hf, err := NewHeapFile(path, td)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	t.Cleanup(func() { _ = hf.Close() })
	return hf
}

func TestHeapFile_NewFileIsEmpty(t *testing.T) {
	hf := tempHeapFile(t, twoIntDesc(t))

	numPages, err := hf.NumPages()
	if err != nil {
		t.Fatalf("NumPages: %v", err)
	}
	if numPages != 0 {
		t.Errorf("fresh heap file should have 0 pages, got %d", numPages)
	}
	if !hf.GetID().IsValid() {
		t.Error("heap file should derive a valid table id from its path")
	}
}

func TestHeapFile_InsertGrowsFileByWholePages(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)
	tid := primitives.NewTransactionID()

	mutated, err := hf.InsertTuple(tid, pool, twoIntTuple(t, td, 1, 10))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if len(mutated) != 1 {
		t.Fatalf("expected 1 mutated page, got %d", len(mutated))
	}
	if mutated[0].IsDirty() == nil {
		t.Error("mutated page should be marked dirty")
	}

	numPages, err := hf.NumPages()
	if err != nil {
		t.Fatalf("NumPages: %v", err)
	}
	if numPages != 1 {
		t.Errorf("expected file to grow to 1 page, got %d", numPages)
	}
}

func TestHeapFile_InsertSpillsToSecondPage(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)
	tid := primitives.NewTransactionID()

	// A (int, int) page holds 504 tuples; one more forces a second page.
	const perPage = 504
	for i := int32(0); i < perPage+1; i++ {
		if _, err := hf.InsertTuple(tid, pool, twoIntTuple(t, td, i, i)); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}

	numPages, err := hf.NumPages()
	if err != nil {
		t.Fatalf("NumPages: %v", err)
	}
	if numPages != 2 {
		t.Errorf("expected 2 pages after %d inserts, got %d", perPage+1, numPages)
	}
}

func TestHeapFile_WriteThenReadPageRoundTrip(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)
	tid := primitives.NewTransactionID()

	mutated, err := hf.InsertTuple(tid, pool, twoIntTuple(t, td, 7, 70))
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if err := hf.WritePage(mutated[0]); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if mutated[0].IsDirty() != nil {
		t.Error("WritePage should clear the dirty flag")
	}

	reread, err := hf.ReadPage(mutated[0].GetID())
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	tuples := reread.(*HeapPage).GetTuples()
	if len(tuples) != 1 {
		t.Fatalf("expected 1 tuple after re-read, got %d", len(tuples))
	}
	f0, _ := tuples[0].GetField(0)
	if f0.String() != "7" {
		t.Errorf("re-read tuple field 0 = %s, expected 7", f0.String())
	}
}

func TestHeapFile_DeleteTuple(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)
	tid := primitives.NewTransactionID()

	tp := twoIntTuple(t, td, 5, 50)
	if _, err := hf.InsertTuple(tid, pool, tp); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if tp.RecordID == nil {
		t.Fatal("insert should stamp a record id")
	}

	mutated, err := hf.DeleteTuple(tid, pool, tp)
	if err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}
	if len(mutated) != 1 {
		t.Fatalf("expected 1 mutated page, got %d", len(mutated))
	}
	if tp.RecordID != nil {
		t.Error("delete should clear the record id")
	}

	detached := twoIntTuple(t, td, 6, 60)
	if _, err := hf.DeleteTuple(tid, pool, detached); err == nil {
		t.Error("expected error deleting tuple without record id")
	}
}

func TestHeapFile_IteratorScansAllPagesInOrder(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)
	tid := primitives.NewTransactionID()

	const n = 600 // spills onto a second page
	for i := int32(0); i < n; i++ {
		if _, err := hf.InsertTuple(tid, pool, twoIntTuple(t, td, i, i*10)); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}

	it := hf.Iterator(tid, pool)
	if err := it.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer it.Close()

	var seen int32
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !hasNext {
			break
		}
		tp, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		f0, _ := tp.GetField(0)
		if !f0.Equals(types.NewIntField(seen)) {
			t.Fatalf("tuple %d out of order: got %s", seen, f0.String())
		}
		seen++
	}
	if seen != n {
		t.Errorf("expected %d tuples from scan, got %d", n, seen)
	}

	// Rewind restarts from page 0.
	if err := it.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	hasNext, err := it.HasNext()
	if err != nil {
		t.Fatalf("HasNext after rewind: %v", err)
	}
	if !hasNext {
		t.Error("rewound iterator should have tuples again")
	}
}

func TestHeapFile_IteratorRequiresOpen(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)
	pool := newStubPool(hf)

	it := hf.Iterator(primitives.NewTransactionID(), pool)
	if _, err := it.HasNext(); err == nil {
		t.Error("HasNext on unopened iterator should error")
	}
}

func TestHeapFile_ReadPageValidation(t *testing.T) {
	td := twoIntDesc(t)
	hf := tempHeapFile(t, td)

	if _, err := hf.ReadPage(nil); err == nil {
		t.Error("expected error for nil page id")
	}

	wrongTable := page.NewPageDescriptor(hf.GetID()+1, 0)
	if _, err := hf.ReadPage(wrongTable); err == nil {
		t.Error("expected error for mismatched table id")
	}
}
