package location

import (
	"testing"

	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestLocation(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	tests := []struct {
		name  string
		id    string
		value string
		code  finding.Code
	}{
		{"valid country", "58", "AR", ""},
		{"other country", "58", "BR", finding.UnexpectedCountry},
		{"lowercase country", "58", "ar", finding.UnexpectedCountry},
		{"long country", "58", "ARG", finding.UnexpectedCountry},
		{"empty name", "59", "", finding.InvalidMerchantText},
		{"long name", "59", "Toludev shop and bakery 24h", finding.InvalidMerchantText},
		{"max name", "59", "Toludev shop and bakery 2", ""},
		{"empty city", "60", "", finding.InvalidMerchantText},
		{"long city", "60", "Ciudad de Buenos Aires", finding.InvalidMerchantText},
		{"max city", "60", "Ciudad de Bueno", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, rulestest.Replace(base, tt.id, tt.value))
			if tt.code == "" {
				if len(got) != 0 {
					t.Errorf("findings = %v, want none", got)
				}
				return
			}
			if len(got) != 1 || got[0].Code != tt.code || got[0].FieldID != tt.id || got[0].Severity != finding.Warning {
				t.Errorf("findings = %v, want %s on %s", got, tt.code, tt.id)
			}
		})
	}
}

func TestFixtureIsClean(t *testing.T) {
	for _, p := range []string{rulestest.Fixed, rulestest.Variable} {
		if got := rulestest.Check(&Rule{}, rulestest.Decode(t, p)); len(got) != 0 {
			t.Errorf("findings = %v, want none", got)
		}
	}
}
