package validate

import (
	"errors"
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

const (
	fixedTerminal    = "00020101021226460002AR012201103432300343175379290210TERMINAL01520454925303032540718000005802AR5912Toludev shop6009Argentina62170513SALE-EC094FBE63048680"
	variableTerminal = "00020101021226490002AR012201103432300343175379290213SALE-A7FA937452045492530303254064800005802AR5912Toludev shop6009Argentina62170513SALE-A7FA93746304B997"
)

func TestPayloadClean(t *testing.T) {
	d, got, err := Payload(fixedTerminal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("findings = %v, want none", got)
	}
	if len(d.Fields) != 11 {
		t.Errorf("len(Fields) = %d, want 11", len(d.Fields))
	}
}

func TestPayloadVariableTerminal(t *testing.T) {
	_, got, err := Payload(variableTerminal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("findings = %v, want 1", got)
	}
	if got[0].Code != finding.VariableTerminalID || got[0].Severity != finding.Critical {
		t.Errorf("finding = %+v", got[0])
	}
}

func TestPayloadCRCMismatch(t *testing.T) {
	bad := fixedTerminal[:len(fixedTerminal)-4] + "AAAA"
	_, got, err := Payload(bad)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != finding.CRCMismatch || got[0].Severity != finding.Critical {
		t.Errorf("findings = %v", got)
	}
}

func TestPayloadTrailingData(t *testing.T) {
	d, got, err := Payload(fixedTerminal + "XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if d.Trailing == nil || d.Trailing.Data != "XYZ" {
		t.Fatalf("Trailing = %+v", d.Trailing)
	}
	if len(got) != 1 || got[0].Code != finding.TrailingData || got[0].Severity != finding.Warning {
		t.Errorf("findings = %v", got)
	}
}

func TestPayloadDecodeError(t *testing.T) {
	_, got, err := Payload("000201010")
	if !errors.Is(err, emv.ErrMalformedField) {
		t.Fatalf("err = %v, want ErrMalformedField", err)
	}
	if got != nil {
		t.Errorf("findings = %v, want nil", got)
	}
}

func TestEmptyMerchantCategory(t *testing.T) {
	d, err := emv.Decode(fixedTerminal)
	if err != nil {
		t.Fatal(err)
	}
	fields := append(emv.Payload{}, d.Fields...)
	fields[fields.Index(emv.IDMerchantCategory)] = emv.NewField(emv.IDMerchantCategory, "")

	sealed, err := emv.Seal(fields)
	if err != nil {
		t.Fatal(err)
	}
	_, got, err := Payload(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != finding.EmptyMerchantCategory || got[0].Severity != finding.Critical {
		t.Errorf("findings = %v", got)
	}
}

func TestValidateEmpty(t *testing.T) {
	got := Validate(nil)
	if n := got.Count(finding.Critical); n != 9 {
		t.Errorf("critical = %d, want 9: %v", n, got)
	}
	if !got.Has(finding.MissingReference) {
		t.Error("missing additional data should be reported")
	}
}

func TestValidateCRCNotLast(t *testing.T) {
	d, err := emv.Decode(fixedTerminal)
	if err != nil {
		t.Fatal(err)
	}
	fields := append(append(emv.Payload{}, d.Fields...), emv.NewField("64", "0002ES"))

	var crcFindings finding.List
	for _, f := range Validate(fields) {
		if f.FieldID == emv.IDCRC {
			crcFindings = append(crcFindings, f)
		}
	}
	if len(crcFindings) != 1 || crcFindings[0].Code != finding.InvalidCRCField {
		t.Errorf("findings on 63 = %v, want one invalid_crc_field", crcFindings)
	}
}

func TestWithPolicy(t *testing.T) {
	d, err := emv.Decode(fixedTerminal)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultPolicy()
	p.Country = "UY"

	got := Validate(d.Fields, WithPolicy(p))
	if len(got) != 2 || got.Count(finding.Warning) != 2 {
		t.Fatalf("findings = %v, want 2 warnings", got)
	}
	if !got.Has(finding.UnexpectedCountry) || !got.Has(finding.InvalidSubfield) {
		t.Errorf("findings = %v", got)
	}
}

func TestWithRegistry(t *testing.T) {
	d, err := emv.Decode(variableTerminal)
	if err != nil {
		t.Fatal(err)
	}
	if got := Validate(d.Fields, WithRegistry(registry.New())); len(got) != 0 {
		t.Errorf("empty registry produced findings: %v", got)
	}
}

func TestTrace(t *testing.T) {
	d, err := emv.Decode(fixedTerminal)
	if err != nil {
		t.Fatal(err)
	}
	trace := Trace(d.Fields)
	if len(trace) == 0 {
		t.Fatal("empty trace")
	}
	seen := make(map[string]bool)
	for _, tr := range trace {
		seen[tr.Rule] = true
		if len(tr.Findings) != 0 {
			t.Errorf("%s on %q: findings %v", tr.Rule, tr.FieldID, tr.Findings)
		}
	}
	for _, name := range []string{"required_fields", "merchant_account", "crc", "merchant_category"} {
		if !seen[name] {
			t.Errorf("rule %s not evaluated", name)
		}
	}
}
