package emv

import (
	"fmt"
	"strings"

	"emvqr/internal/crc"
)

// Encode serialises fields in order. Lengths are taken from the values, so a
// Field's Length is ignored here.
func Encode(fields Payload) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		if err := writeTLV(&b, f.ID, f.Value); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// EncodeTemplate serialises subfields into a template field value.
func EncodeTemplate(t Template) (string, error) {
	var b strings.Builder
	for _, s := range t {
		if err := writeTLV(&b, s.ID, s.Value); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// TemplateField encodes t and wraps it in a top-level field.
func TemplateField(id string, t Template) (Field, error) {
	v, err := EncodeTemplate(t)
	if err != nil {
		return Field{}, fmt.Errorf("template %s: %w", id, err)
	}
	if len(v) > MaxLength {
		return Field{}, &FieldTooLongError{ID: id, Length: len(v)}
	}
	return NewField(id, v), nil
}

// Seal encodes every field except an existing CRC field, then appends a CRC
// field computed over the result plus "6304".
func Seal(fields Payload) (string, error) {
	s, sum, err := checksum(fields)
	if err != nil {
		return "", err
	}
	return s + sum, nil
}

// ExpectedCRC returns the CRC value the fields should carry: the checksum of
// their encoding (without any CRC field) followed by "6304".
func ExpectedCRC(fields Payload) (string, error) {
	_, sum, err := checksum(fields)
	return sum, err
}

func checksum(fields Payload) (prefix, sum string, err error) {
	body := make(Payload, 0, len(fields))
	for _, f := range fields {
		if f.ID != IDCRC {
			body = append(body, f)
		}
	}
	s, err := Encode(body)
	if err != nil {
		return "", "", err
	}
	s += CRCTag
	v, err := crc.Checksum(s)
	if err != nil {
		return "", "", err
	}
	return s, crc.Format(v), nil
}

// CRCTag is the id and fixed length of the CRC field, the last characters
// covered by the checksum.
const CRCTag = IDCRC + "04"

func writeTLV(b *strings.Builder, id, value string) error {
	if len(id) != 2 || !IsNumeric(id) {
		return fmt.Errorf("emv: %w: %q", ErrInvalidID, id)
	}
	if len(value) > MaxLength {
		return &FieldTooLongError{ID: id, Length: len(value)}
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7E {
			return fmt.Errorf("emv: field %s: %w", id, ErrNonASCII)
		}
	}
	fmt.Fprintf(b, "%s%02d%s", id, len(value), value)
	return nil
}
