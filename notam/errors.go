package notam

import (
	"errors"
	"fmt"
)

var (
	// ErrBadLength is returned for a compact date that is neither 10 characters nor PERM.
	ErrBadLength = errors.New("notam: compact date must be 10 digits or PERM")

	// ErrBadDigits is returned when a compact date contains non-digits or an impossible value.
	ErrBadDigits = errors.New("notam: malformed compact date")

	// ErrNoMatch is returned when text does not follow the expected positional grammar.
	ErrNoMatch = errors.New("notam: text does not match expected pattern")

	// ErrInvalidWindow is returned when validFrom is after validTo.
	ErrInvalidWindow = errors.New("notam: validity window is inverted")
)

// DecodeError describes a field that could not be decoded. Callers recover
// from it locally by leaving the field empty.
type DecodeError struct {
	Field string
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("notam: decode %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
