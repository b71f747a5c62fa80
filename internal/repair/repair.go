// Package repair recomputes stale CRCs and keeps rendered QR bitmaps in step
// with the corrected payload.
package repair

import (
	"strings"

	"emvqr/internal/crc"
	"emvqr/internal/emv"
)

// Result describes one repair attempt.
type Result struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Changed   bool   `json:"changed"`
	Declared  string `json:"declared,omitempty"` // CRC value found in the payload.
	Computed  string `json:"computed,omitempty"` // CRC value the payload should carry.
	Reason    string `json:"reason,omitempty"`   // Why nothing was changed, if nothing was.
}

// Reasons for leaving a payload untouched.
const (
	ReasonMalformed = "payload does not decode"
	ReasonNoCRC     = "no CRC field"
	ReasonBadLength = "CRC field length is not 4"
	ReasonNonASCII  = "payload is not ASCII"
	ReasonValid     = "CRC already valid"
)

// Repair recomputes the CRC of payload and rewrites the CRC field when the
// declared value differs. The 8-character field "6304XXXX" is replaced as a
// whole; every other character, including anything after the CRC field, is
// kept byte for byte. Repair never fails: payloads it cannot interpret are
// returned unchanged.
func Repair(payload string) Result {
	r := Result{Original: payload, Corrected: payload}

	d, err := emv.Decode(payload)
	if err != nil {
		r.Reason = ReasonMalformed
		return r
	}

	i := d.Fields.Index(emv.IDCRC)
	if i < 0 {
		r.Reason = ReasonNoCRC
		return r
	}
	field := d.Fields[i]
	r.Declared = field.Value
	if field.Length != 4 {
		r.Reason = ReasonBadLength
		return r
	}

	// Everything up to and including "6304".
	end := field.Offset + len(emv.CRCTag)
	sum, err := crc.Checksum(payload[:end])
	if err != nil {
		r.Reason = ReasonNonASCII
		return r
	}
	r.Computed = crc.Format(sum)

	if field.Value == r.Computed {
		r.Reason = ReasonValid
		return r
	}

	var b strings.Builder
	b.Grow(len(payload))
	b.WriteString(payload[:field.Offset])
	b.WriteString(emv.CRCTag)
	b.WriteString(r.Computed)
	b.WriteString(payload[end+4:])

	r.Corrected = b.String()
	r.Changed = true
	return r
}
