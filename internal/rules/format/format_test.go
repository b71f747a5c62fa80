package format

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestFormat(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	tests := []struct {
		name   string
		fields emv.Payload
		want   []finding.Code
	}{
		{"valid", base, nil},
		{"dynamic", rulestest.Replace(base, "01", "12"), nil},
		{"wrong version", rulestest.Replace(base, "00", "02"), []finding.Code{finding.InvalidFormatIndicator}},
		{"bad initiation", rulestest.Replace(base, "01", "13"), []finding.Code{finding.InvalidInitiationMethod}},
		{"not first", append(emv.Payload{emv.NewField("59", "X")}, base...), []finding.Code{finding.InvalidFormatIndicator}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, tt.fields)
			if len(got) != len(tt.want) {
				t.Fatalf("findings = %v, want codes %v", got, tt.want)
			}
			for i, code := range tt.want {
				if got[i].Code != code {
					t.Errorf("finding[%d].Code = %s, want %s", i, got[i].Code, code)
				}
			}
		})
	}
}

func TestSeverities(t *testing.T) {
	base := rulestest.Decode(t, rulestest.Fixed)

	got := rulestest.Check(&Rule{}, rulestest.Replace(base, "00", "02"))
	if len(got) != 1 || got[0].Severity != finding.Critical {
		t.Errorf("format indicator finding = %v, want critical", got)
	}
	got = rulestest.Check(&Rule{}, rulestest.Replace(base, "01", "99"))
	if len(got) != 1 || got[0].Severity != finding.Warning {
		t.Errorf("initiation finding = %v, want warning", got)
	}
}
