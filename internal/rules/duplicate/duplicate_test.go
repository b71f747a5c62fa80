package duplicate

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/rules/rulestest"
)

func TestDuplicate(t *testing.T) {
	fields := rulestest.Decode(t, rulestest.Fixed)
	if got := rulestest.Check(&Rule{}, fields); len(got) != 0 {
		t.Fatalf("findings = %v, want none", got)
	}

	fields = append(fields, emv.NewField("59", "Other"), emv.NewField("59", "Third"))
	got := rulestest.Check(&Rule{}, fields)
	if len(got) != 1 {
		t.Fatalf("findings = %v, want 1", got)
	}
	if got[0].Code != finding.DuplicateField || got[0].FieldID != "59" || got[0].Severity != finding.Warning {
		t.Errorf("finding = %+v", got[0])
	}
}
