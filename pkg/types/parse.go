package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseField reads one fixed-width field of the given type from r, mirroring
// the layout each Field's Serialize method writes: a big-endian int32 for
// IntType, or a 4-byte big-endian length prefix followed by StringMaxSize
// zero-padded bytes for StringType.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		return parseIntField(r)
	case StringType:
		return parseStringField(r)
	default:
		return nil, fmt.Errorf("unknown field type: %v", fieldType)
	}
}

func parseIntField(r io.Reader) (Field, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read int field: %w", err)
	}
	return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil // #nosec G115
}

func parseStringField(r io.Reader) (Field, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return nil, fmt.Errorf("failed to read string field length: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf)

	padded := make([]byte, StringMaxSize)
	if _, err := io.ReadFull(r, padded); err != nil {
		return nil, fmt.Errorf("failed to read string field data: %w", err)
	}

	if int(length) > StringMaxSize {
		return nil, fmt.Errorf("string field length %d exceeds max size %d", length, StringMaxSize)
	}

	return NewStringField(string(padded[:length]), StringMaxSize), nil
}
