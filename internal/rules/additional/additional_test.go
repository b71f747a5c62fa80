package additional

import (
	"strings"
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestAdditional(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	tests := []struct {
		name     string
		fields   emv.Payload
		code     finding.Code
		severity finding.Severity
		sub      string
	}{
		{"valid", base, "", "", ""},
		{"missing field", rulestest.Without(base, "62"), finding.MissingReference, finding.Warning, ""},
		{"no reference", rulestest.Replace(base, "62", "0706CAJA01"), finding.MissingReference, finding.Warning, "05"},
		{"empty reference", rulestest.Replace(base, "62", "0500"), finding.MissingReference, finding.Warning, "05"},
		{"malformed", rulestest.Replace(base, "62", "0513SALE"), finding.InvalidSubfield, finding.Critical, ""},
		{"long reference", rulestest.Replace(base, "62", "0526"+strings.Repeat("R", 26)), finding.InvalidSubfield, finding.Warning, "05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, tt.fields)
			if tt.code == "" {
				if len(got) != 0 {
					t.Errorf("findings = %v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("findings = %v, want 1", got)
			}
			f := got[0]
			if f.Code != tt.code || f.Severity != tt.severity || f.SubfieldID != tt.sub || f.FieldID != "62" {
				t.Errorf("finding = %+v", f)
			}
		})
	}
}
