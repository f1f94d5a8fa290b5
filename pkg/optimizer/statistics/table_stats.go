package statistics

import (
	"fmt"

	dberror "storedb/pkg/error"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// TableStats holds the per-table inputs the planner's cost model consumes:
// the table's page count (for scan cost), its tuple count (for cardinality)
// and one equi-width histogram per column (for predicate selectivity).
// String columns are folded onto the integer histogram machinery through
// StringCode, so every column's selectivity question reduces to an integer
// range question.
//
// Construction scans the table twice through the buffer pool: the first
// pass finds each column's min and max, the second fills bucket counts.
// The result is immutable; a table that changes materially should have its
// stats recomputed, not patched.
type TableStats struct {
	tableID       primitives.TableID
	desc          *tuple.TupleDescription
	ioCostPerPage int
	numPages      primitives.PageNumber
	numTuples     int64
	histograms    []*Histogram // one per column, indexed by field position
}

// columnRange tracks a column's observed min/max during the first pass.
type columnRange struct {
	min, max int32
	seen     bool
}

func (cr *columnRange) observe(v int32) {
	if !cr.seen {
		cr.min, cr.max, cr.seen = v, v, true
		return
	}
	if v < cr.min {
		cr.min = v
	}
	if v > cr.max {
		cr.max = v
	}
}

// NewTableStats builds statistics for file by scanning it twice under tid.
// The caller owns tid's lifecycle; the scans acquire shared page locks that
// are released, like any other read's, when the caller's transaction
// completes.
func NewTableStats(tid primitives.TransactionID, file *heap.HeapFile, pool heap.PagePool, ioCostPerPage, numBuckets int) (*TableStats, error) {
	desc := file.GetTupleDesc()
	numPages, err := file.NumPages()
	if err != nil {
		return nil, err
	}

	ts := &TableStats{
		tableID:       file.GetID(),
		desc:          desc,
		ioCostPerPage: ioCostPerPage,
		numPages:      numPages,
		histograms:    make([]*Histogram, desc.NumFields()),
	}

	ranges := make([]columnRange, desc.NumFields())
	if err := ts.scan(tid, file, pool, func(t *tuple.Tuple) error {
		ts.numTuples++
		for i := range ranges {
			v, err := columnValue(t, i)
			if err != nil {
				return err
			}
			ranges[i].observe(v)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	for i, cr := range ranges {
		if !cr.seen {
			cr.min, cr.max = 0, 0
		}
		ts.histograms[i] = NewHistogram(cr.min, cr.max, numBuckets, nil)
	}

	ts.numTuples = 0
	if err := ts.scan(tid, file, pool, func(t *tuple.Tuple) error {
		ts.numTuples++
		for i, h := range ts.histograms {
			v, err := columnValue(t, i)
			if err != nil {
				return err
			}
			h.AddValue(v)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return ts, nil
}

func (ts *TableStats) scan(tid primitives.TransactionID, file *heap.HeapFile, pool heap.PagePool, visit func(*tuple.Tuple) error) error {
	it := file.Iterator(tid, pool)
	if err := it.Open(); err != nil {
		return err
	}
	defer it.Close()

	for {
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		if err := visit(t); err != nil {
			return err
		}
	}
}

// columnValue reduces the ith field of t to the int32 the histograms index
// by: the value itself for integers, the StringCode for strings.
func columnValue(t *tuple.Tuple, i int) (int32, error) {
	f, err := t.GetField(i)
	if err != nil {
		return 0, err
	}
	switch field := f.(type) {
	case *types.IntField:
		return field.Value, nil
	case *types.StringField:
		return StringCode(field.Value), nil
	default:
		return 0, fmt.Errorf("column %d has no histogram-mappable type", i)
	}
}

// EstimateScanCost returns the cost of a full sequential scan of the table:
// every page read once at the configured per-page IO cost.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * float64(ts.ioCostPerPage)
}

// EstimateTableCardinality returns the expected number of tuples a plan
// node with the given selectivity produces from this table.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int64 {
	return int64(float64(ts.numTuples) * selectivity)
}

// EstimateSelectivity estimates the fraction of the table's tuples
// satisfying "field op constant", dispatching on the constant's type.
func (ts *TableStats) EstimateSelectivity(field int, op primitives.Predicate, constant types.Field) (float64, error) {
	if field < 0 || field >= len(ts.histograms) {
		return 0, dberror.IllegalArgument(fmt.Sprintf("field index %d out of range [0, %d)", field, len(ts.histograms)))
	}

	switch c := constant.(type) {
	case *types.IntField:
		return ts.histograms[field].EstimateSelectivity(op, c.Value), nil
	case *types.StringField:
		return ts.histograms[field].EstimateSelectivity(op, StringCode(c.Value)), nil
	default:
		return 0, dberror.IllegalArgument("constant has no histogram-mappable type")
	}
}

// AvgSelectivity returns the field's average per-bucket selectivity, the
// fallback estimate for predicates the histogram cannot model.
func (ts *TableStats) AvgSelectivity(field int) (float64, error) {
	if field < 0 || field >= len(ts.histograms) {
		return 0, dberror.IllegalArgument(fmt.Sprintf("field index %d out of range [0, %d)", field, len(ts.histograms)))
	}
	return ts.histograms[field].AvgSelectivity(), nil
}

// TotalTuples returns the number of tuples counted during construction.
func (ts *TableStats) TotalTuples() int64 {
	return ts.numTuples
}

// NumPages returns the table's page count at construction time.
func (ts *TableStats) NumPages() primitives.PageNumber {
	return ts.numPages
}
