package registry

import (
	"regexp"
	"strings"
)

// Policy holds the deployment-specific expectations rules compare against.
type Policy struct {
	Country       string // ISO 3166-1 alpha-2, field 58 and merchant account 00.
	Currency      string // ISO 4217 numeric, field 53.
	AccountLength int    // Expected length of merchant account subfield 01. Zero disables the check.

	// ReferencePattern matches per-transaction reference tokens.
	ReferencePattern *regexp.Regexp

	// HexRuns treats any run of eight or more hex characters mixing letters
	// and digits as a reference, even when 62/05 does not carry it.
	HexRuns bool
}

// DefaultReferencePattern matches tokens such as SALE-EC08FEBC, ORDER_1234,
// TXN#9F2A or ORD1234: a known reference prefix followed either by a
// separator and an alphanumeric run containing a digit, or directly by a
// hex run starting with a digit.
var DefaultReferencePattern = regexp.MustCompile(
	`(?i)\b(?:sale|order|ord|ref|txn|tx|pay|pmt|inv|test|venta|pedido|orden)(?:[-_#:][0-9a-z]*[0-9][0-9a-z]*|[0-9][0-9a-f]*)\b`)

var hexRun = regexp.MustCompile(`[0-9A-Fa-f]{8,}`)

// DefaultPolicy returns the policy for Argentine bank-transfer QR codes.
func DefaultPolicy() Policy {
	return Policy{
		Country:          "AR",
		Currency:         "032",
		AccountLength:    22,
		ReferencePattern: DefaultReferencePattern,
	}
}

// LooksLikeReference reports whether v carries a per-transaction token
// matched by the reference pattern. With HexRuns set, a bare hex run
// mixing letters and digits (a UUID fragment) counts as well.
func (p Policy) LooksLikeReference(v string) bool {
	pattern := p.ReferencePattern
	if pattern == nil {
		pattern = DefaultReferencePattern
	}
	if pattern.MatchString(v) {
		return true
	}
	if !p.HexRuns {
		return false
	}
	for _, run := range hexRun.FindAllString(v, -1) {
		if mixesLettersAndDigits(run) {
			return true
		}
	}
	return false
}

// SharesHexRun reports whether v contains a hex run mixing letters and
// digits that also appears in ref, such as terminal A7FA9374 against
// reference SALE-A7FA9374.
func SharesHexRun(v, ref string) bool {
	if ref == "" {
		return false
	}
	ref = strings.ToUpper(ref)
	for _, run := range hexRun.FindAllString(v, -1) {
		if mixesLettersAndDigits(run) && strings.Contains(ref, strings.ToUpper(run)) {
			return true
		}
	}
	return false
}

func mixesLettersAndDigits(s string) bool {
	var letter, digit bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digit = true
		default:
			letter = true
		}
	}
	return letter && digit
}
