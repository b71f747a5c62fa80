package required

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestComplete(t *testing.T) {
	fields := rulestest.Decode(t, rulestest.Fixed)
	if got := rulestest.Check(&Rule{}, fields); len(got) != 0 {
		t.Errorf("findings = %v, want none", got)
	}
}

func TestMissing(t *testing.T) {
	fields := rulestest.Decode(t, rulestest.Fixed)

	for _, id := range []string{"00", "01", "52", "53", "58", "59", "60", "63"} {
		t.Run(id, func(t *testing.T) {
			got := rulestest.Check(&Rule{}, rulestest.Without(fields, id))
			if len(got) != 1 {
				t.Fatalf("findings = %v, want 1", got)
			}
			if got[0].Code != finding.MissingRequiredField || got[0].Severity != finding.Critical || got[0].FieldID != id {
				t.Errorf("finding = %+v", got[0])
			}
		})
	}
}

func TestMissingMerchantAccount(t *testing.T) {
	fields := rulestest.Without(rulestest.Decode(t, rulestest.Fixed), "26")
	got := rulestest.Check(&Rule{}, fields)
	if len(got) != 1 || got[0].Code != finding.MissingRequiredField || got[0].FieldID != "" {
		t.Errorf("findings = %v", got)
	}

	// A primitive merchant account (02-25) also satisfies the requirement.
	fields = append(fields, emv.NewField("04", "4000123412341234"))
	if got := rulestest.Check(&Rule{}, fields); len(got) != 0 {
		t.Errorf("findings = %v, want none", got)
	}
}

func TestEmptyPayload(t *testing.T) {
	got := rulestest.Check(&Rule{}, nil)
	if len(got) != 9 {
		t.Errorf("len(findings) = %d, want 9", len(got))
	}
	if finding.List(got).Count(finding.Critical) != 9 {
		t.Error("every missing field should be critical")
	}
}
