package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStructural       = errors.New("malformed input source")
	ErrValidation       = errors.New("output validation failed")
)

// Recovery classes. These never abort a batch; they label the counters
// kept by the normalizer and the metrics collectors.
var (
	ErrMissingField = errors.New("missing field")
	ErrTypeCoercion = errors.New("type coercion failure")
	ErrEncoding     = errors.New("encoding failure")
)

// Class returns the metric label of the recovery class err belongs to, or
// "" when err is not a recovery.
func Class(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrTypeCoercion):
		return "type_coercion"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	}
	return ""
}
