package currency

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
	"emvqr/internal/rules/rulestest"
)

func TestCurrency(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	tests := []struct {
		value   string
		flagged bool
	}{
		{"032", false},
		{"840", true},
		{"32", true},
		{"ARS", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, rulestest.Replace(base, emv.IDCurrency, tt.value))
			if !tt.flagged {
				if len(got) != 0 {
					t.Errorf("findings = %v, want none", got)
				}
				return
			}
			if len(got) != 1 || got[0].Code != finding.UnexpectedCurrency || got[0].Severity != finding.Warning {
				t.Errorf("findings = %v", got)
			}
		})
	}
}

func TestCurrencyPolicy(t *testing.T) {
	fields := rulestest.Replace(rulestest.Decode(t, rulestest.Fixed), emv.IDCurrency, "840")
	if got := rulestest.CheckPolicy(&Rule{}, fields, registry.Policy{Currency: "840"}); len(got) != 0 {
		t.Errorf("findings = %v, want none", got)
	}
	if got := rulestest.CheckPolicy(&Rule{}, fields, registry.Policy{}); len(got) != 0 {
		t.Errorf("empty policy currency should accept any code, got %v", got)
	}
}
