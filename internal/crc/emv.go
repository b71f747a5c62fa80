// Package crc provides the CRC-16 used to seal EMV merchant-presented QR payloads.
package crc

import (
	"errors"
	"fmt"
	"strconv"
)

// Poly is the CCITT polynomial x^16 + x^12 + x^5 + 1, processed MSB-first.
const Poly uint16 = 0x1021

// Init is the register preset mandated for EMV QR payloads.
const Init uint16 = 0xFFFF

// ErrNonASCII is returned when the checksum input contains a byte above 0x7F.
// Payload characters are taken as 8-bit values, so multi-byte runes would
// silently change the checksum.
var ErrNonASCII = errors.New("crc: non-ASCII input")

// table16 is the lookup table for poly 0x1021, MSB-first.
var table16 = makeTable(Poly)

func makeTable(poly uint16) *[256]uint16 {
	var t [256]uint16
	for i := range t {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

// Table16 calculates CRC-16 (poly 0x1021, MSB-first, no reflection, no final
// xor) over data starting from init.
func Table16(data []byte, init uint16) uint16 {
	crc := init
	for _, b := range data {
		crc = (crc << 8) ^ table16[((crc>>8)^uint16(b))&0xff]
	}
	return crc
}

// Bitwise is the bit-at-a-time form of Table16. It is kept as the reference
// the table is checked against.
func Bitwise(data []byte, init uint16) uint16 {
	crc := init
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Checksum computes the EMV QR CRC (CRC-16/CCITT-FALSE) over s.
func Checksum(s string) (uint16, error) {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return 0, fmt.Errorf("%w at offset %d", ErrNonASCII, i)
		}
	}
	return Table16([]byte(s), Init), nil
}

// Format renders a checksum the way it appears in a payload: four uppercase,
// zero-padded hex digits.
func Format(v uint16) string {
	return fmt.Sprintf("%04X", v)
}

// Parse reads a 4-digit hex checksum. Lowercase digits are accepted here;
// whether they are acceptable in a payload is a validation concern.
func Parse(s string) (uint16, bool) {
	if len(s) != 4 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !IsHexDigit(s[i]) {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// IsHexDigit returns true if c is a valid hexadecimal digit (0-9, A-F, a-f).
func IsHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// IsUpperHex reports whether s consists only of 0-9 and A-F.
func IsUpperHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
