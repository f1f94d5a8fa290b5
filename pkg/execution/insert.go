package execution

import (
	"fmt"

	"storedb/pkg/primitives"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// TupleWriter is the slice of buffer-pool behavior the write operators
// need: route an insert or delete through the cache under the caller's
// transaction, leaving the mutated page dirty.
type TupleWriter interface {
	InsertTuple(tid primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error
	DeleteTuple(tid primitives.TransactionID, t *tuple.Tuple) error
}

// Insert drains its child on the first fetch, sending every tuple through
// the buffer pool into the target table, and emits exactly one single-field
// tuple holding the number of rows inserted. Subsequent fetches yield
// nothing, so a plan executes its insert exactly once.
type Insert struct {
	base     *BaseIterator
	tid      primitives.TransactionID
	child    DbIterator
	tableID  primitives.TableID
	pool     TupleWriter
	desc     *tuple.TupleDescription
	done     bool
}

// NewInsert builds an insert of child's tuples into tableID under tid. The
// child's schema must match the target table's schema.
func NewInsert(tid primitives.TransactionID, child DbIterator, tableID primitives.TableID, tableDesc *tuple.TupleDescription, pool TupleWriter) (*Insert, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("tuple writer cannot be nil")
	}
	if !child.GetTupleDesc().Equals(tableDesc) {
		return nil, fmt.Errorf("child schema %s does not match table schema %s",
			child.GetTupleDesc().String(), tableDesc.String())
	}

	desc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"inserted"})
	if err != nil {
		return nil, err
	}

	ins := &Insert{tid: tid, child: child, tableID: tableID, pool: pool, desc: desc}
	ins.base = NewBaseIterator(ins.readNext)
	return ins, nil
}

func (ins *Insert) Open() error {
	if err := ins.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	ins.done = false
	ins.base.MarkOpened()
	return nil
}

func (ins *Insert) readNext() (*tuple.Tuple, error) {
	if ins.done {
		return nil, nil
	}
	ins.done = true

	var count int32
	for {
		hasNext, err := ins.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		t, err := ins.child.Next()
		if err != nil {
			return nil, err
		}
		if err := ins.pool.InsertTuple(ins.tid, ins.tableID, t); err != nil {
			return nil, fmt.Errorf("insert failed after %d tuples: %w", count, err)
		}
		count++
	}

	result := tuple.NewTuple(ins.desc)
	if err := result.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return result, nil
}

func (ins *Insert) Close() error {
	if ins.child != nil {
		_ = ins.child.Close()
	}
	return ins.base.Close()
}

func (ins *Insert) Rewind() error {
	if err := ins.child.Rewind(); err != nil {
		return err
	}
	ins.done = false
	ins.base.ClearCache()
	return nil
}

// GetTupleDesc returns the single-column (count) schema of the result.
func (ins *Insert) GetTupleDesc() *tuple.TupleDescription {
	return ins.desc
}

func (ins *Insert) HasNext() (bool, error)      { return ins.base.HasNext() }
func (ins *Insert) Next() (*tuple.Tuple, error) { return ins.base.Next() }
