package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated           = errors.New("protocol: truncated input")
	ErrInvalidDiscriminant = errors.New("protocol: invalid discriminant")
	ErrOutOfRange          = errors.New("protocol: value out of range")
	ErrInvalidVariant      = errors.New("protocol: invalid variant")
	ErrLengthMismatch      = errors.New("protocol: header length mismatch")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
)

// TruncatedError reports a buffer shorter than a field or schema requires.
type TruncatedError struct {
	Field string
	Need  int
	Have  int
}

func (e TruncatedError) Error() string {
	return fmt.Sprintf("protocol: truncated input at %s: need %d bytes, have %d", e.Field, e.Need, e.Have)
}

func (e TruncatedError) Unwrap() error {
	return ErrTruncated
}

// DiscriminantError reports a decoded enum byte with no named variant.
type DiscriminantError struct {
	Field string
	Raw   uint16
}

func (e DiscriminantError) Error() string {
	return fmt.Sprintf("protocol: invalid discriminant for %s: 0x%02x", e.Field, e.Raw)
}

func (e DiscriminantError) Unwrap() error {
	return ErrInvalidDiscriminant
}

// VariantError reports an enum value handed to an encoder that has no raw
// discriminant.
type VariantError struct {
	Field string
	Raw   uint16
}

func (e VariantError) Error() string {
	return fmt.Sprintf("protocol: invalid variant for %s: 0x%02x", e.Field, e.Raw)
}

func (e VariantError) Unwrap() error {
	return ErrInvalidVariant
}

// RangeError reports an integer that does not fit its wire width.
type RangeError struct {
	Field string
	Value int64
	Min   int64
	Max   int64
}

func (e RangeError) Error() string {
	return fmt.Sprintf("protocol: %s=%d outside %d..%d", e.Field, e.Value, e.Min, e.Max)
}

func (e RangeError) Unwrap() error {
	return ErrOutOfRange
}
