// Package emv decodes and encodes EMVCo merchant-presented QR payloads.
//
// A payload is a flat sequence of fields, each written as a two-digit id, a
// two-digit decimal length and exactly that many value characters:
//
//	00 02 01 | 01 02 12 | 26 46 0002AR0122...0210TERMINAL01 | ... | 63 04 8680
//
// Some fields (merchant account information, additional data) carry a nested
// sequence in their value using the same grammar. Nesting is one level deep:
// a Field may be decoded into a Template of Subfields, and a Subfield has no
// further structure as far as this package is concerned.
//
// The payload ends with the CRC field (id 63, length 04) whose value is the
// CRC-16/CCITT-FALSE of everything before it, including the characters "6304".
package emv
