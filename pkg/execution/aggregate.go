package execution

import (
	"fmt"
	"math"

	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// NoGrouping marks an Aggregate with no grouping column: every input tuple
// folds into a single group.
const NoGrouping = -1

// AggregateOp is the reduction an Aggregate operator applies within a group.
type AggregateOp int

const (
	Min AggregateOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggregateOp) String() string {
	switch op {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// groupState accumulates one group's running result and count. acc's
// meaning depends on op: a running min/max/sum for MIN/MAX/SUM/AVG,
// unused for COUNT (count alone drives the emitted value there).
type groupState struct {
	groupField types.Field
	acc        int32
	count      int32
}

func (gs *groupState) result(op AggregateOp) types.Field {
	switch op {
	case Count:
		return types.NewIntField(gs.count)
	case Avg:
		if gs.count == 0 {
			return types.NewIntField(0)
		}
		return types.NewIntField(gs.acc / gs.count)
	default:
		return types.NewIntField(gs.acc)
	}
}

// Aggregate groups its child's tuples by a single column (or not at all)
// and reduces a single other column with one of MIN/MAX/SUM/AVG/COUNT. It
// is eager: Open drains the entire child before the first tuple is ever
// emitted, since every aggregate value depends on having seen every row in
// its group. Groups are emitted in Go map iteration order, which carries no
// guarantee beyond "every group exactly once".
type Aggregate struct {
	base       *BaseIterator
	child      DbIterator
	groupField int
	aggField   int
	op         AggregateOp
	tupleDesc  *tuple.TupleDescription

	groups map[string]*groupState
	keys   []string
	idx    int
}

// NewAggregate builds an aggregate over child's aggField column, grouped by
// groupField (or NoGrouping). String columns only support Count; requesting
// any other op over a string column is rejected here, at construction, per
// the iterator protocol's "reject incompatible schemas up front" discipline.
func NewAggregate(child DbIterator, groupField, aggField int, op AggregateOp) (*Aggregate, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	childDesc := child.GetTupleDesc()
	aggType, err := childDesc.TypeAtIndex(aggField)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregate field %d: %w", aggField, err)
	}
	if aggType == types.StringType && op != Count {
		return nil, fmt.Errorf("string aggregator only supports COUNT, got %s", op)
	}

	var groupType types.Type
	var groupName string
	if groupField != NoGrouping {
		groupType, err = childDesc.TypeAtIndex(groupField)
		if err != nil {
			return nil, fmt.Errorf("invalid group field %d: %w", groupField, err)
		}
		groupName = "group"
	}

	tupleDesc, err := buildAggregateTupleDesc(groupField, groupType, groupName, op)
	if err != nil {
		return nil, err
	}

	a := &Aggregate{
		child:      child,
		groupField: groupField,
		aggField:   aggField,
		op:         op,
		tupleDesc:  tupleDesc,
	}
	a.base = NewBaseIterator(a.readNext)
	return a, nil
}

func buildAggregateTupleDesc(groupField int, groupType types.Type, groupName string, op AggregateOp) (*tuple.TupleDescription, error) {
	if groupField == NoGrouping {
		return tuple.NewTupleDesc([]types.Type{types.IntType}, []string{op.String()})
	}
	return tuple.NewTupleDesc([]types.Type{groupType, types.IntType}, []string{groupName, op.String()})
}

func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}

	a.groups = make(map[string]*groupState)
	for {
		hasNext, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		if err := a.merge(t); err != nil {
			return err
		}
	}

	a.keys = make([]string, 0, len(a.groups))
	for k := range a.groups {
		a.keys = append(a.keys, k)
	}
	a.idx = 0

	a.base.MarkOpened()
	return nil
}

func (a *Aggregate) merge(t *tuple.Tuple) error {
	key := "NO_GROUPING"
	var groupField types.Field
	if a.groupField != NoGrouping {
		gf, err := t.GetField(a.groupField)
		if err != nil {
			return fmt.Errorf("failed to get grouping field: %w", err)
		}
		groupField = gf
		if gf != nil {
			key = gf.String()
		}
	}

	gs, ok := a.groups[key]
	if !ok {
		gs = &groupState{groupField: groupField, acc: initAccValue(a.op)}
		a.groups[key] = gs
	}

	if a.op == Count {
		gs.count++
		return nil
	}

	af, err := t.GetField(a.aggField)
	if err != nil {
		return fmt.Errorf("failed to get aggregate field: %w", err)
	}
	intField, ok := af.(*types.IntField)
	if !ok {
		return fmt.Errorf("aggregate field is not an integer")
	}

	switch a.op {
	case Min:
		if intField.Value < gs.acc {
			gs.acc = intField.Value
		}
	case Max:
		if intField.Value > gs.acc {
			gs.acc = intField.Value
		}
	case Sum, Avg:
		gs.acc += intField.Value
		gs.count++
	default:
		return fmt.Errorf("unsupported aggregate operation: %v", a.op)
	}
	return nil
}

func initAccValue(op AggregateOp) int32 {
	switch op {
	case Min:
		return math.MaxInt32
	case Max:
		return math.MinInt32
	default:
		return 0
	}
}

func (a *Aggregate) readNext() (*tuple.Tuple, error) {
	if a.idx >= len(a.keys) {
		return nil, nil
	}
	gs := a.groups[a.keys[a.idx]]
	a.idx++

	t := tuple.NewTuple(a.tupleDesc)
	if a.groupField == NoGrouping {
		if err := t.SetField(0, gs.result(a.op)); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err := t.SetField(0, gs.groupField); err != nil {
		return nil, err
	}
	if err := t.SetField(1, gs.result(a.op)); err != nil {
		return nil, err
	}
	return t, nil
}

func (a *Aggregate) Close() error {
	if a.child != nil {
		_ = a.child.Close()
	}
	a.groups = nil
	a.keys = nil
	return a.base.Close()
}

// Rewind re-drains the child from scratch: rewind ≡ close; open.
func (a *Aggregate) Rewind() error {
	if err := a.Close(); err != nil {
		return err
	}
	return a.Open()
}

func (a *Aggregate) GetTupleDesc() *tuple.TupleDescription {
	return a.tupleDesc
}

func (a *Aggregate) HasNext() (bool, error)      { return a.base.HasNext() }
func (a *Aggregate) Next() (*tuple.Tuple, error) { return a.base.Next() }
