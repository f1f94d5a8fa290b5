package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"storedb/pkg/primitives"
	"strings"
)

// StringMaxSize is the fixed on-disk width, in bytes, of a string column.
const (
	StringMaxSize = 128
)

// StringField holds a UTF-8 string in a fixed-width column. The value may be
// shorter than the column width; serialization pads the remainder with
// zeros so every slot stays the same size.
type StringField struct {
	Value   string
	MaxSize int // declared column width in bytes
}

// NewStringField builds a string field, truncating value to maxSize bytes
// if it is longer.
func NewStringField(value string, maxSize int) *StringField {
	if len(value) > maxSize {
		value = value[:maxSize]
	}

	return &StringField{
		Value:   value,
		MaxSize: maxSize,
	}
}

// Compare evaluates this op other lexicographically. Like is substring
// containment. Comparing against a non-string field is false, never an
// error, matching the cross-type-compare-is-undefined contract.
func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherStringField, ok := other.(*StringField)
	if !ok {
		return false, nil
	}

	cmp := strings.Compare(s.Value, otherStringField.Value)

	switch op {
	case primitives.Equals:
		return cmp == 0, nil

	case primitives.LessThan:
		return cmp < 0, nil

	case primitives.GreaterThan:
		return cmp > 0, nil

	case primitives.LessThanOrEqual:
		return cmp <= 0, nil

	case primitives.GreaterThanOrEqual:
		return cmp >= 0, nil

	case primitives.NotEqual:
		return cmp != 0, nil

	case primitives.Like:
		return strings.Contains(s.Value, otherStringField.Value), nil
	default:
		return false, nil
	}
}

// Serialize writes the fixed-width encoding: a 4-byte big-endian length
// prefix, the value bytes, then zero padding out to MaxSize.
func (s *StringField) Serialize(w io.Writer) error {
	length := min(len(s.Value), s.MaxSize)

	lengthBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBytes, uint32(length))

	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}

	if _, err := w.Write([]byte(s.Value[:length])); err != nil {
		return err
	}

	padding := make([]byte, s.MaxSize-length)
	_, err := w.Write(padding)
	return err
}

// Type returns the type identifier for this field.
func (s *StringField) Type() Type {
	return StringType
}

// String returns the string value stored in this field.
func (s *StringField) String() string {
	return s.Value
}

// Equals reports whether other is a string field with the same value and
// declared width.
func (s *StringField) Equals(other Field) bool {
	otherStringField, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherStringField.Value && s.MaxSize == otherStringField.MaxSize
}

// Hash returns an FNV-1a hash of the value.
func (s *StringField) Hash() (primitives.HashCode, error) {
	h := fnv.New32a()
	h.Write([]byte(s.Value))
	return primitives.HashCode(h.Sum32()), nil
}

// Length returns the serialized width: the 4-byte prefix plus the padded
// payload.
func (s *StringField) Length() uint32 {
	return 4 + StringMaxSize
}
