package execution

import (
	"fmt"

	"storedb/pkg/primitives"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// Delete drains its child on the first fetch, removing every tuple it
// produces through the buffer pool, and emits exactly one single-field
// tuple holding the number of rows deleted. The child is typically a
// filtered scan, so the tuples it yields carry the RecordIDs the delete
// needs to locate each page.
type Delete struct {
	base  *BaseIterator
	tid   primitives.TransactionID
	child DbIterator
	pool  TupleWriter
	desc  *tuple.TupleDescription
	done  bool
}

// NewDelete builds a delete of child's tuples under tid.
func NewDelete(tid primitives.TransactionID, child DbIterator, pool TupleWriter) (*Delete, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("tuple writer cannot be nil")
	}

	desc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"deleted"})
	if err != nil {
		return nil, err
	}

	d := &Delete{tid: tid, child: child, pool: pool, desc: desc}
	d.base = NewBaseIterator(d.readNext)
	return d, nil
}

func (d *Delete) Open() error {
	if err := d.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	d.done = false
	d.base.MarkOpened()
	return nil
}

func (d *Delete) readNext() (*tuple.Tuple, error) {
	if d.done {
		return nil, nil
	}
	d.done = true

	var count int32
	for {
		hasNext, err := d.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		if err := d.pool.DeleteTuple(d.tid, t); err != nil {
			return nil, fmt.Errorf("delete failed after %d tuples: %w", count, err)
		}
		count++
	}

	result := tuple.NewTuple(d.desc)
	if err := result.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Delete) Close() error {
	if d.child != nil {
		_ = d.child.Close()
	}
	return d.base.Close()
}

func (d *Delete) Rewind() error {
	if err := d.child.Rewind(); err != nil {
		return err
	}
	d.done = false
	d.base.ClearCache()
	return nil
}

// GetTupleDesc returns the single-column (count) schema of the result.
func (d *Delete) GetTupleDesc() *tuple.TupleDescription {
	return d.desc
}

func (d *Delete) HasNext() (bool, error)      { return d.base.HasNext() }
func (d *Delete) Next() (*tuple.Tuple, error) { return d.base.Next() }
