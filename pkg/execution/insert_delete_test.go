package execution

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storedb/pkg/bufferpool"
	"storedb/pkg/catalog"
	"storedb/pkg/concurrency/lock"
	"storedb/pkg/config"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

type engine struct {
	cat  *catalog.Catalog
	pool *bufferpool.BufferPool
	file *heap.HeapFile
	desc *tuple.TupleDescription
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	cfg := config.Default()
	cfg.LockRetrySleep = time.Millisecond

	desc, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType},
		[]string{"id", "val"},
	)
	require.NoError(t, err)

	path := primitives.Filepath(filepath.Join(t.TempDir(), "table.dat"))
	file, err := heap.NewHeapFile(path, desc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	cat := catalog.NewCatalog()
	require.NoError(t, cat.AddTable(file, "table", "id"))

	pool := bufferpool.NewBufferPool(cfg, cat, lock.NewManager(cfg))
	return &engine{cat: cat, pool: pool, file: file, desc: desc}
}

func (e *engine) row(t *testing.T, id, val int32) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(e.desc)
	require.NoError(t, tp.SetField(0, types.NewIntField(id)))
	require.NoError(t, tp.SetField(1, types.NewIntField(val)))
	return tp
}

func (e *engine) scanAll(t *testing.T, tid primitives.TransactionID) []*tuple.Tuple {
	t.Helper()
	scan, err := NewSeqScan(tid, e.file.GetID(), e.cat, e.pool)
	require.NoError(t, err)
	require.NoError(t, scan.Open())
	defer scan.Close()
	return drain(t, scan)
}

func singleCount(t *testing.T, it DbIterator) int32 {
	t.Helper()
	out := drain(t, it)
	require.Len(t, out, 1, "write operators emit exactly one count tuple")
	return fieldValue(t, out[0], 0)
}

func TestInsert_WritesChildTuplesAndReportsCount(t *testing.T) {
	e := newEngine(t)
	tid := primitives.NewTransactionID()

	src := tuple.NewIteratorWithDesc(
		[]*tuple.Tuple{e.row(t, 1, 10), e.row(t, 2, 20), e.row(t, 3, 30)},
		e.desc,
	)
	ins, err := NewInsert(tid, src, e.file.GetID(), e.desc, e.pool)
	require.NoError(t, err)
	require.NoError(t, ins.Open())
	defer ins.Close()

	require.Equal(t, int32(3), singleCount(t, ins))

	// The count tuple is emitted exactly once.
	hasNext, err := ins.HasNext()
	require.NoError(t, err)
	require.False(t, hasNext)

	require.Len(t, e.scanAll(t, tid), 3)
}

func TestInsert_RejectsMismatchedSchema(t *testing.T) {
	e := newEngine(t)
	tid := primitives.NewTransactionID()

	otherDesc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"only"})
	require.NoError(t, err)
	src := tuple.NewIteratorWithDesc(nil, otherDesc)

	_, err = NewInsert(tid, src, e.file.GetID(), e.desc, e.pool)
	require.Error(t, err)
}

func TestInsert_EmptyChildInsertsNothing(t *testing.T) {
	e := newEngine(t)
	tid := primitives.NewTransactionID()

	src := tuple.NewIteratorWithDesc([]*tuple.Tuple{}, e.desc)
	ins, err := NewInsert(tid, src, e.file.GetID(), e.desc, e.pool)
	require.NoError(t, err)
	require.NoError(t, ins.Open())
	defer ins.Close()

	require.Equal(t, int32(0), singleCount(t, ins))
	require.Empty(t, e.scanAll(t, tid))
}

func TestDelete_RemovesFilteredTuples(t *testing.T) {
	e := newEngine(t)
	tid := primitives.NewTransactionID()

	for i := int32(1); i <= 5; i++ {
		require.NoError(t, e.pool.InsertTuple(tid, e.file.GetID(), e.row(t, i, i*10)))
	}

	// DELETE WHERE val > 30, driven by a filtered scan whose tuples carry
	// the record ids the delete needs.
	scan, err := NewSeqScan(tid, e.file.GetID(), e.cat, e.pool)
	require.NoError(t, err)
	pred, err := NewPredicate(1, primitives.GreaterThan, types.NewIntField(30))
	require.NoError(t, err)
	filtered, err := NewFilter(pred, scan)
	require.NoError(t, err)

	del, err := NewDelete(tid, filtered, e.pool)
	require.NoError(t, err)
	require.NoError(t, del.Open())
	defer del.Close()

	require.Equal(t, int32(2), singleCount(t, del))

	remaining := e.scanAll(t, tid)
	require.Len(t, remaining, 3)
	for _, tp := range remaining {
		require.LessOrEqual(t, fieldValue(t, tp, 1), int32(30))
	}
}

func TestInsertThenAbort_LeavesTableUntouched(t *testing.T) {
	e := newEngine(t)
	t1 := primitives.NewTransactionID()

	src := tuple.NewIteratorWithDesc([]*tuple.Tuple{e.row(t, 1, 10)}, e.desc)
	ins, err := NewInsert(t1, src, e.file.GetID(), e.desc, e.pool)
	require.NoError(t, err)
	require.NoError(t, ins.Open())
	singleCount(t, ins)
	require.NoError(t, ins.Close())

	e.pool.AbortTransaction(t1)

	t2 := primitives.NewTransactionID()
	require.Empty(t, e.scanAll(t, t2), "aborted insert must not be visible afterwards")
}

func TestSeqScan_RewindRestartsScan(t *testing.T) {
	e := newEngine(t)
	tid := primitives.NewTransactionID()

	for i := int32(1); i <= 3; i++ {
		require.NoError(t, e.pool.InsertTuple(tid, e.file.GetID(), e.row(t, i, i)))
	}

	scan, err := NewSeqScan(tid, e.file.GetID(), e.cat, e.pool)
	require.NoError(t, err)
	require.NoError(t, scan.Open())
	defer scan.Close()

	first := drain(t, scan)
	require.NoError(t, scan.Rewind())
	second := drain(t, scan)

	require.Len(t, first, 3)
	require.Len(t, second, 3)
}
