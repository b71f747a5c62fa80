// Package report builds diagnostics for a single payload: its decoded
// structure, CRC status, validation findings and the repair outcome.
package report

import (
	"errors"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/repair"
	"emvqr/internal/validate"
)

// Report is the machine-readable diagnostic for one payload.
type Report struct {
	Payload  string        `json:"payload"`
	Length   int           `json:"length"`
	Error    *DecodeError  `json:"error,omitempty"`
	Fields   []Field       `json:"fields"`
	Trailing string        `json:"trailing,omitempty"`
	CRC      *CRC          `json:"crc,omitempty"`
	Findings finding.List  `json:"findings"`
	Critical int           `json:"critical"`
	Warnings int           `json:"warnings"`
	Repair   repair.Result `json:"repair"`
}

// OK reports whether the payload decoded and has no critical findings.
func (r *Report) OK() bool { return r.Error == nil && r.Critical == 0 }

// DecodeError describes why the payload could not be decoded.
type DecodeError struct {
	Message string `json:"message"`
	Offset  int    `json:"offset"`
	// ASCIIHint is the payload with accents stripped, offered when decoding
	// failed on non-ASCII input. Lengths and CRC must be recomputed after
	// applying it.
	ASCIIHint string `json:"ascii_hint,omitempty"`
}

// Field is a decoded top-level field.
type Field struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Length        int        `json:"length"`
	Value         string     `json:"value"`
	Offset        int        `json:"offset"`
	Subfields     []Subfield `json:"subfields,omitempty"`
	TemplateError string     `json:"template_error,omitempty"`
}

// Subfield is a decoded subfield of a template field.
type Subfield struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Length int    `json:"length"`
	Value  string `json:"value"`
}

// CRC compares the declared and computed checksums.
type CRC struct {
	Declared string `json:"declared"`
	Computed string `json:"computed,omitempty"`
	Valid    bool   `json:"valid"`
}

// Build decodes, validates and repairs payload and collects the results.
// Options are passed to the validator.
func Build(payload string, opts ...validate.Option) Report {
	r := Report{
		Payload: payload,
		Length:  len(payload),
		Repair:  repair.Repair(payload),
	}

	d, findings, err := validate.Payload(payload, opts...)
	if err != nil {
		r.Error = decodeError(payload, err)
		r.Findings = finding.List{finding.Criticalf(finding.MalformedPayload, "", "%v", err)}
		r.count()
		return r
	}

	for _, f := range d.Fields {
		r.Fields = append(r.Fields, field(f))
	}
	if d.Trailing != nil {
		r.Trailing = d.Trailing.Data
	}
	if f, ok := d.Fields.Find(emv.IDCRC); ok {
		r.CRC = &CRC{
			Declared: f.Value,
			Computed: r.Repair.Computed,
			Valid:    r.Repair.Computed != "" && f.Value == r.Repair.Computed,
		}
	}
	r.Findings = findings
	r.count()
	return r
}

func (r *Report) count() {
	r.Critical = r.Findings.Count(finding.Critical)
	r.Warnings = r.Findings.Count(finding.Warning)
}

func field(f emv.Field) Field {
	out := Field{
		ID:     f.ID,
		Name:   emv.Name(f.ID),
		Length: f.Length,
		Value:  f.Value,
		Offset: f.Offset,
	}
	kind := f.Kind()
	if !kind.IsTemplate() {
		return out
	}

	t, err := f.Template()
	if err != nil {
		out.TemplateError = err.Error()
		return out
	}
	for _, s := range t {
		out.Subfields = append(out.Subfields, Subfield{
			ID:     s.ID,
			Name:   emv.SubfieldName(kind, s.ID),
			Length: s.Length,
			Value:  s.Value,
		})
	}
	return out
}

func decodeError(payload string, err error) *DecodeError {
	de := &DecodeError{Message: err.Error()}

	var mf *emv.MalformedFieldError
	if errors.As(err, &mf) {
		de.Offset = mf.Offset
	}
	if errors.Is(err, emv.ErrNonASCII) {
		de.ASCIIHint = FoldASCII(payload)
	}
	return de
}

// FoldASCII strips diacritics (é to e, ñ to n) and replaces whatever is
// still outside printable ASCII with '?'.
func FoldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	out := []rune(folded)
	for i, c := range out {
		if c < 0x20 || c > 0x7E {
			out[i] = '?'
		}
	}
	return string(out)
}
