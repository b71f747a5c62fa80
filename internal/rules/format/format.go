// Package format checks the payload format indicator (00) and the point of
// initiation method (01).
package format

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

const (
	// Version is the only payload format indicator defined.
	Version = "01"

	// Static QR codes are reused across sales; dynamic ones are printed per sale.
	Static  = "11"
	Dynamic = "12"
)

// Rule checks fields 00 and 01.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string { return "format" }
func (r *Rule) FieldIDs() []string {
	return []string{emv.IDPayloadFormat, emv.IDInitiationMethod}
}
func (r *Rule) Priority() int { return 10 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	switch f.ID {
	case emv.IDPayloadFormat:
		var out []finding.Finding
		if f.Value != Version {
			out = append(out, finding.Criticalf(finding.InvalidFormatIndicator, f.ID,
				"payload format indicator is %q, want %q", f.Value, Version))
		}
		if i != 0 {
			out = append(out, finding.Criticalf(finding.InvalidFormatIndicator, f.ID,
				"payload format indicator is field #%d, must be the first field", i+1))
		}
		return out

	case emv.IDInitiationMethod:
		if f.Value != Static && f.Value != Dynamic {
			return []finding.Finding{finding.Warningf(finding.InvalidInitiationMethod, f.ID,
				"point of initiation method is %q, want %q (static) or %q (dynamic)", f.Value, Static, Dynamic)}
		}
	}
	return nil
}
