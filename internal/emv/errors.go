package emv

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedField = errors.New("malformed field")
	ErrFieldTooLong   = errors.New("field too long")
	ErrTrailingData   = errors.New("trailing data")

	ErrShortID       = errors.New("fewer than 2 characters left for id")
	ErrShortLength   = errors.New("fewer than 2 characters left for length")
	ErrInvalidLength = errors.New("length is not a 2-digit decimal number")
	ErrValueOverrun  = errors.New("declared length exceeds remaining characters")
	ErrInvalidID     = errors.New("id is not a 2-digit decimal number")
	ErrNonASCII      = errors.New("character outside printable ASCII")
)

// MalformedFieldError reports a structural decoding failure. Offset is the
// byte offset, within the string being decoded, where decoding broke down.
type MalformedFieldError struct {
	Offset int
	ID     string // Empty when the id itself could not be read.
	Reason error
}

func (e *MalformedFieldError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("emv: malformed field at offset %d: %v", e.Offset, e.Reason)
	}
	return fmt.Sprintf("emv: malformed field %s at offset %d: %v", e.ID, e.Offset, e.Reason)
}

func (e *MalformedFieldError) Unwrap() error { return e.Reason }

func (e *MalformedFieldError) Is(target error) bool { return target == ErrMalformedField }

// FieldTooLongError is returned by the encoders when a value cannot be
// described by a 2-digit length.
type FieldTooLongError struct {
	ID     string
	Length int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("emv: field %s: value length %d exceeds %d", e.ID, e.Length, MaxLength)
}

func (e *FieldTooLongError) Is(target error) bool { return target == ErrFieldTooLong }

// TrailingData describes characters left over after the CRC field. It is not
// returned as an error by Decode; it is attached to the Decoded result.
type TrailingData struct {
	Offset int
	Data   string
}

func (t *TrailingData) Error() string {
	return fmt.Sprintf("emv: %d trailing characters after CRC field at offset %d", len(t.Data), t.Offset)
}

func (t *TrailingData) Is(target error) bool { return target == ErrTrailingData }
