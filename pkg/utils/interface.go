package utils

import "reflect"

// IsNilInterface reports whether i is nil or wraps a nil pointer, slice,
// map, channel or function. An interface holding a typed nil pointer is not
// == nil, so callers validating interface-typed arguments (a DbFile, a
// Page) need this check rather than a plain comparison.
func IsNilInterface(i any) bool {
	if i == nil {
		return true
	}

	v := reflect.ValueOf(i)

	switch v.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
