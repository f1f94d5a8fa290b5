package tuple

import "fmt"

// Iterator walks an in-memory slice of tuples through the same
// open/hasNext/next/rewind contract the execution operators use, which
// makes it the standard leaf for operator tests and for feeding literal
// rows into an insert plan.
type Iterator struct {
	tuples    []*Tuple
	tupleDesc *TupleDescription
	index     int
	opened    bool
}

// NewIterator wraps tuples without a schema; GetTupleDesc returns nil.
func NewIterator(tuples []*Tuple) *Iterator {
	return &Iterator{tuples: tuples, index: -1}
}

// NewIteratorWithDesc wraps tuples together with their schema, which lets
// the iterator stand in for a scan even when the slice is empty.
func NewIteratorWithDesc(tuples []*Tuple, desc *TupleDescription) *Iterator {
	return &Iterator{tuples: tuples, tupleDesc: desc, index: -1}
}

func (it *Iterator) Open() error {
	it.opened = true
	it.index = -1
	return nil
}

func (it *Iterator) Close() error {
	it.opened = false
	return nil
}

func (it *Iterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}
	if it.tuples == nil {
		return false, fmt.Errorf("iterator not initialized with tuples")
	}
	return it.index+1 < len(it.tuples), nil
}

func (it *Iterator) Next() (*Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}

	it.index++
	return it.tuples[it.index], nil
}

func (it *Iterator) Rewind() error {
	if !it.opened {
		return fmt.Errorf("iterator not opened")
	}
	it.index = -1
	return nil
}

func (it *Iterator) GetTupleDesc() *TupleDescription {
	return it.tupleDesc
}
