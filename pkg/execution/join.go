package execution

import (
	"fmt"

	"storedb/pkg/tuple"
)

// Join is a nested-loop join over two children: for every left tuple, every
// right tuple is probed against the JoinPredicate. The right child is
// rewound each time the outer loop advances, so it must support Rewind.
type Join struct {
	base      *BaseIterator
	predicate *JoinPredicate
	left      DbIterator
	right     DbIterator
	tupleDesc *tuple.TupleDescription

	curLeft *tuple.Tuple
}

// NewJoin builds a join of left and right under pred. The output schema is
// the concatenation of the left and right children's schemas.
func NewJoin(pred *JoinPredicate, left, right DbIterator) (*Join, error) {
	if pred == nil {
		return nil, fmt.Errorf("join predicate cannot be nil")
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("join children cannot be nil")
	}

	j := &Join{
		predicate: pred,
		left:      left,
		right:     right,
		tupleDesc: tuple.Combine(left.GetTupleDesc(), right.GetTupleDesc()),
	}
	j.base = NewBaseIterator(j.readNext)
	return j, nil
}

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return fmt.Errorf("failed to open left child: %w", err)
	}
	if err := j.right.Open(); err != nil {
		return fmt.Errorf("failed to open right child: %w", err)
	}
	j.base.MarkOpened()
	return nil
}

func (j *Join) Close() error {
	_ = j.left.Close()
	_ = j.right.Close()
	j.curLeft = nil
	return j.base.Close()
}

func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	j.curLeft = nil
	j.base.ClearCache()
	return nil
}

func (j *Join) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *Join) HasNext() (bool, error)      { return j.base.HasNext() }
func (j *Join) Next() (*tuple.Tuple, error) { return j.base.Next() }

// readNext advances the nested loop: it holds the current left tuple fixed
// and scans right until a match is found, rewinding right and fetching the
// next left tuple when right is exhausted.
func (j *Join) readNext() (*tuple.Tuple, error) {
	for {
		if j.curLeft == nil {
			hasLeft, err := j.left.HasNext()
			if err != nil {
				return nil, err
			}
			if !hasLeft {
				return nil, nil
			}
			j.curLeft, err = j.left.Next()
			if err != nil {
				return nil, err
			}
			if err := j.right.Rewind(); err != nil {
				return nil, err
			}
		}

		hasRight, err := j.right.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasRight {
			j.curLeft = nil
			continue
		}

		rightTuple, err := j.right.Next()
		if err != nil {
			return nil, err
		}

		matches, err := j.predicate.Matches(j.curLeft, rightTuple)
		if err != nil {
			return nil, err
		}
		if !matches {
			continue
		}

		return tuple.CombineTuples(j.curLeft, rightTuple)
	}
}
