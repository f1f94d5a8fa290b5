package types

import (
	"io"
	"storedb/pkg/primitives"
)

// Field is a single typed value stored in a tuple. Every on-disk scalar type
// implements this interface so that tuples, predicates and the storage layer
// can operate on values without knowing their concrete representation.
type Field interface {
	// Serialize writes the field's fixed-width on-disk encoding to w.
	Serialize(w io.Writer) error

	// Compare evaluates this field op other. When other's type differs from
	// this field's type the result is false, with no error.
	Compare(op primitives.Predicate, other Field) (bool, error)

	// Type reports the field's static type.
	Type() Type

	String() string

	Equals(other Field) bool

	Hash() (primitives.HashCode, error)
}
