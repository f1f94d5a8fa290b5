// Package execution implements the pull-based query iterator protocol: a
// uniform open/hasNext/next/rewind/close contract shared by every operator,
// from leaf scans through filters, joins, aggregates and the write
// operators that drive tuples back through the buffer pool.
package execution

import (
	"fmt"
	"storedb/pkg/tuple"
)

// DbIterator is the capability set every execution operator exposes. An
// operator tree is composed by nesting DbIterators; each node owns its
// children exclusively and drives them through this same interface, so
// adding an operator never requires touching the ones around it.
type DbIterator interface {
	Open() error
	Close() error
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
	Rewind() error
	GetTupleDesc() *tuple.TupleDescription
}

// ReadNextFunc produces the next tuple from an operator's underlying source,
// or (nil, nil) once it is exhausted.
type ReadNextFunc func() (*tuple.Tuple, error)

// BaseIterator factors out the lookahead caching every operator needs to
// implement HasNext/Next on top of a single-shot readNext function: callers
// can probe HasNext repeatedly without consuming a tuple, and Next reuses
// whatever HasNext already fetched.
type BaseIterator struct {
	nextTuple    *tuple.Tuple
	opened       bool
	readNextFunc ReadNextFunc
}

// NewBaseIterator wraps readNextFunc in the open/cache bookkeeping shared by
// every operator. The returned iterator starts closed.
func NewBaseIterator(readNextFunc ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNextFunc: readNextFunc}
}

func (it *BaseIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return false, err
		}
	}
	return it.nextTuple != nil, nil
}

func (it *BaseIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}

	result := it.nextTuple
	it.nextTuple = nil
	return result, nil
}

// ClearCache drops any looked-ahead tuple without touching the open/closed
// state. Rewind implementations call this after rewinding their child so
// the next HasNext re-reads from the (now restarted) source.
func (it *BaseIterator) ClearCache() {
	it.nextTuple = nil
}

// Close marks the iterator closed and drops any cached tuple. The iterator
// cannot be used again until MarkOpened is called.
func (it *BaseIterator) Close() error {
	it.nextTuple = nil
	it.opened = false
	return nil
}

// MarkOpened marks the iterator open and ready for use.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
	it.nextTuple = nil
}
