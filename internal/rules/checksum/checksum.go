// Package checksum checks the CRC field (63).
package checksum

import (
	"strings"

	"emvqr/internal/crc"
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Rule checks field 63.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "crc" }
func (r *Rule) FieldIDs() []string { return []string{emv.IDCRC} }
func (r *Rule) Priority() int      { return 90 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)
	var out []finding.Finding

	// Decode stops at 63, but field lists built by callers may not.
	if i != len(in.Fields)-1 {
		out = append(out, finding.Criticalf(finding.InvalidCRCField, f.ID,
			"CRC field is followed by %d more field(s); it must be last", len(in.Fields)-1-i))
	}
	if len(f.Value) != 4 {
		return append(out, finding.Criticalf(finding.InvalidCRCField, f.ID,
			"CRC field length is %d, must be 4", len(f.Value)))
	}
	if !crc.IsUpperHex(f.Value) {
		out = append(out, finding.Criticalf(finding.InvalidCRCField, f.ID,
			"CRC %q must be 4 uppercase hexadecimal digits", f.Value))
	}

	want, err := emv.ExpectedCRC(in.Fields[:i])
	if err != nil {
		return append(out, finding.Criticalf(finding.InvalidCRCField, f.ID,
			"CRC cannot be computed over the preceding fields: %v", err))
	}
	if !strings.EqualFold(f.Value, want) {
		out = append(out, finding.Criticalf(finding.CRCMismatch, f.ID,
			"declared CRC %s does not match computed %s", f.Value, want))
	}
	return out
}
