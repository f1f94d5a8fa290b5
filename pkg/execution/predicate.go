package execution

import (
	"fmt"

	"storedb/pkg/primitives"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

// Predicate compares one field of a tuple against a constant operand. It is
// the filter condition the Filter operator evaluates against every tuple it
// pulls from its child.
type Predicate struct {
	fieldIndex int
	op         primitives.Predicate
	operand    types.Field
}

// NewPredicate builds a predicate that compares the field at fieldIndex
// against operand using op.
func NewPredicate(fieldIndex int, op primitives.Predicate, operand types.Field) (*Predicate, error) {
	if fieldIndex < 0 {
		return nil, fmt.Errorf("field index cannot be negative: %d", fieldIndex)
	}
	if operand == nil {
		return nil, fmt.Errorf("operand cannot be nil")
	}
	return &Predicate{fieldIndex: fieldIndex, op: op, operand: operand}, nil
}

// Matches reports whether t satisfies the predicate.
func (p *Predicate) Matches(t *tuple.Tuple) (bool, error) {
	field, err := t.GetField(p.fieldIndex)
	if err != nil {
		return false, err
	}
	if field == nil {
		return false, nil
	}
	return field.Compare(p.op, p.operand)
}

func (p *Predicate) String() string {
	return fmt.Sprintf("field[%d] %s %s", p.fieldIndex, p.op.String(), p.operand.String())
}

// JoinPredicate compares a field from each side of a Join's two children.
type JoinPredicate struct {
	leftIdx  int
	rightIdx int
	op       primitives.Predicate
}

// NewJoinPredicate builds a predicate comparing the leftIdx field of the
// left child's tuple against the rightIdx field of the right child's tuple.
func NewJoinPredicate(leftIdx, rightIdx int, op primitives.Predicate) (*JoinPredicate, error) {
	if leftIdx < 0 {
		return nil, fmt.Errorf("left field index cannot be negative: %d", leftIdx)
	}
	if rightIdx < 0 {
		return nil, fmt.Errorf("right field index cannot be negative: %d", rightIdx)
	}
	return &JoinPredicate{leftIdx: leftIdx, rightIdx: rightIdx, op: op}, nil
}

// Matches reports whether the pair (left, right) satisfies the join
// condition.
func (jp *JoinPredicate) Matches(left, right *tuple.Tuple) (bool, error) {
	leftField, err := left.GetField(jp.leftIdx)
	if err != nil {
		return false, fmt.Errorf("left field %d: %w", jp.leftIdx, err)
	}
	rightField, err := right.GetField(jp.rightIdx)
	if err != nil {
		return false, fmt.Errorf("right field %d: %w", jp.rightIdx, err)
	}
	if leftField == nil || rightField == nil {
		return false, nil
	}
	return leftField.Compare(jp.op, rightField)
}

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("left[%d] %s right[%d]", jp.leftIdx, jp.op.String(), jp.rightIdx)
}
