package emv

import "fmt"

// MaxLength is the largest value length a 2-digit length can describe.
const MaxLength = 99

// Field is one top-level TLV element of a payload.
type Field struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Value  string `json:"value"`
	Offset int    `json:"offset"` // Byte offset of the id in the decoded payload.
}

// NewField builds a field whose length matches its value.
func NewField(id, value string) Field {
	return Field{ID: id, Length: len(value), Value: value}
}

// Kind classifies the field by id.
func (f Field) Kind() Kind { return Lookup(f.ID) }

// Template decodes the field's value as a nested sequence of subfields.
func (f Field) Template() (Template, error) { return DecodeTemplate(f.Value) }

func (f Field) String() string {
	return fmt.Sprintf("%s%02d%s", f.ID, f.Length, f.Value)
}

// Payload is the ordered sequence of top-level fields.
type Payload []Field

// Find returns the first field with the given id.
func (p Payload) Find(id string) (Field, bool) {
	if i := p.Index(id); i >= 0 {
		return p[i], true
	}
	return Field{}, false
}

// Index returns the position of the first field with the given id, or -1.
func (p Payload) Index(id string) int {
	for i, f := range p {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Count returns how many fields carry the given id.
func (p Payload) Count(id string) int {
	n := 0
	for _, f := range p {
		if f.ID == id {
			n++
		}
	}
	return n
}

// MerchantAccounts returns every merchant account information field (ids 02-51).
func (p Payload) MerchantAccounts() []Field {
	var out []Field
	for _, f := range p {
		if f.Kind().IsMerchantAccount() {
			out = append(out, f)
		}
	}
	return out
}

// Subfield is one element of a Template. It is deliberately a different type
// from Field: subfields are never decoded further.
type Subfield struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Value  string `json:"value"`
	Offset int    `json:"offset"` // Byte offset within the parent value.
}

// NewSubfield builds a subfield whose length matches its value.
func NewSubfield(id, value string) Subfield {
	return Subfield{ID: id, Length: len(value), Value: value}
}

// Template is the decoded value of a template field.
type Template []Subfield

// Find returns the first subfield with the given id.
func (t Template) Find(id string) (Subfield, bool) {
	for _, s := range t {
		if s.ID == id {
			return s, true
		}
	}
	return Subfield{}, false
}
