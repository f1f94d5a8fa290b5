package execution

import (
	"testing"

	"storedb/pkg/primitives"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

func intDesc(t *testing.T, names ...string) *tuple.TupleDescription {
	t.Helper()
	fieldTypes := make([]types.Type, len(names))
	for i := range names {
		fieldTypes[i] = types.IntType
	}
	td, err := tuple.NewTupleDesc(fieldTypes, names)
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	return td
}

func intTuple(t *testing.T, td *tuple.TupleDescription, values ...int32) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(td)
	for i, v := range values {
		if err := tp.SetField(i, types.NewIntField(v)); err != nil {
			t.Fatalf("SetField(%d): %v", i, err)
		}
	}
	return tp
}

func sourceOf(t *testing.T, td *tuple.TupleDescription, rows ...[]int32) *tuple.Iterator {
	t.Helper()
	tuples := make([]*tuple.Tuple, len(rows))
	for i, row := range rows {
		tuples[i] = intTuple(t, td, row...)
	}
	return tuple.NewIteratorWithDesc(tuples, td)
}

// drain pulls every tuple out of an opened iterator.
func drain(t *testing.T, it DbIterator) []*tuple.Tuple {
	t.Helper()
	var out []*tuple.Tuple
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !hasNext {
			return out
		}
		tp, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, tp)
	}
}

func fieldValue(t *testing.T, tp *tuple.Tuple, i int) int32 {
	t.Helper()
	f, err := tp.GetField(i)
	if err != nil {
		t.Fatalf("GetField(%d): %v", i, err)
	}
	intField, ok := f.(*types.IntField)
	if !ok {
		t.Fatalf("field %d is not an int", i)
	}
	return intField.Value
}

func TestFilter_KeepsOnlyMatchingTuples(t *testing.T) {
	td := intDesc(t, "x")
	src := sourceOf(t, td, []int32{1}, []int32{5}, []int32{3}, []int32{8})

	pred, err := NewPredicate(0, primitives.GreaterThan, types.NewIntField(3))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if err := f.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	out := drain(t, f)
	if len(out) != 2 {
		t.Fatalf("expected 2 tuples > 3, got %d", len(out))
	}
	if fieldValue(t, out[0], 0) != 5 || fieldValue(t, out[1], 0) != 8 {
		t.Errorf("filter changed tuple order: %v, %v", out[0], out[1])
	}
}

func TestFilter_NoMatches(t *testing.T) {
	td := intDesc(t, "x")
	src := sourceOf(t, td, []int32{1}, []int32{2})

	pred, err := NewPredicate(0, primitives.GreaterThan, types.NewIntField(100))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if err := f.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if out := drain(t, f); len(out) != 0 {
		t.Errorf("expected no matches, got %d", len(out))
	}
}

func TestFilter_NextPastEndFails(t *testing.T) {
	td := intDesc(t, "x")
	src := sourceOf(t, td, []int32{1})

	pred, err := NewPredicate(0, primitives.Equals, types.NewIntField(1))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if err := f.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	drain(t, f)
	if _, err := f.Next(); err == nil {
		t.Error("Next past the end should fail")
	}
}

func TestFilter_Rewind(t *testing.T) {
	td := intDesc(t, "x")
	src := sourceOf(t, td, []int32{1}, []int32{2}, []int32{3})

	pred, err := NewPredicate(0, primitives.LessThanOrEqual, types.NewIntField(2))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if err := f.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	first := drain(t, f)
	if err := f.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	second := drain(t, f)

	if len(first) != 2 || len(second) != 2 {
		t.Errorf("rewind should reproduce the same result: %d then %d tuples", len(first), len(second))
	}
}

func TestFilter_RequiresOpen(t *testing.T) {
	td := intDesc(t, "x")
	src := sourceOf(t, td, []int32{1})

	pred, err := NewPredicate(0, primitives.Equals, types.NewIntField(1))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	if _, err := f.HasNext(); err == nil {
		t.Error("HasNext before Open should fail")
	}
}

func TestFilter_GetTupleDescIsChilds(t *testing.T) {
	td := intDesc(t, "x", "y")
	src := sourceOf(t, td, []int32{1, 2})

	pred, err := NewPredicate(0, primitives.Equals, types.NewIntField(1))
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	f, err := NewFilter(pred, src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.GetTupleDesc().Equals(td) {
		t.Error("filter must not change its child's schema")
	}
}
