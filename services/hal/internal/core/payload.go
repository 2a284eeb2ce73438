package core

import "hbridge-go/errcode"

// As[T] asserts a payload to the concrete value type T.
// Pointers to T are accepted and dereferenced. A nil payload is
// errcode.InvalidPayload.
func As[T any](v any) (T, errcode.Code) {
	var zero T
	switch p := v.(type) {
	case nil:
		return zero, errcode.InvalidPayload
	case T:
		return p, ""
	case *T:
		if p == nil {
			return zero, errcode.InvalidPayload
		}
		return *p, ""
	}
	return zero, errcode.InvalidPayload
}
