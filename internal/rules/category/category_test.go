package category

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestCategory(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	tests := []struct {
		value    string
		code     finding.Code
		severity finding.Severity
	}{
		{"5492", "", ""},
		{"0000", "", ""},
		{"", finding.EmptyMerchantCategory, finding.Critical},
		{"549", finding.InvalidMerchantCategory, finding.Warning},
		{"54A2", finding.InvalidMerchantCategory, finding.Warning},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, rulestest.Replace(base, emv.IDMerchantCategory, tt.value))
			if tt.code == "" {
				if len(got) != 0 {
					t.Errorf("findings = %v, want none", got)
				}
				return
			}
			if len(got) != 1 || got[0].Code != tt.code || got[0].Severity != tt.severity {
				t.Errorf("findings = %v, want %s %s", got, tt.severity, tt.code)
			}
		})
	}
}

func TestZeroLengthFromWire(t *testing.T) {
	// 5200 decodes to an empty merchant category code.
	d, err := emv.Decode("000201520053030326304ABCD")
	if err != nil {
		t.Fatal(err)
	}
	got := rulestest.Check(&Rule{}, d.Fields)
	if len(got) != 1 || got[0].Code != finding.EmptyMerchantCategory || got[0].Severity != finding.Critical {
		t.Errorf("findings = %v", got)
	}
}
