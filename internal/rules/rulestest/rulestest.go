// Package rulestest runs individual rules in isolation for tests.
package rulestest

import (
	"testing"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Decode decodes payload and fails the test on error.
func Decode(t testing.TB, payload string) emv.Payload {
	t.Helper()
	d, err := emv.Decode(payload)
	if err != nil {
		t.Fatalf("Decode(%q): %v", payload, err)
	}
	return d.Fields
}

// Check dispatches fields to rule alone under the default policy.
func Check(rule registry.Rule, fields emv.Payload) finding.List {
	return CheckPolicy(rule, fields, registry.DefaultPolicy())
}

// CheckPolicy dispatches fields to rule alone under policy p.
func CheckPolicy(rule registry.Rule, fields emv.Payload, p registry.Policy) finding.List {
	r := registry.New()
	r.Register(rule)
	return r.Dispatch(&registry.Input{Fields: fields, Policy: p})
}

// Replace returns a copy of fields with the value of the first field id swapped.
func Replace(fields emv.Payload, id, value string) emv.Payload {
	out := make(emv.Payload, len(fields))
	copy(out, fields)
	if i := out.Index(id); i >= 0 {
		out[i] = emv.NewField(id, value)
	}
	return out
}

// Without returns a copy of fields with every field id removed.
func Without(fields emv.Payload, id string) emv.Payload {
	var out emv.Payload
	for _, f := range fields {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

// Fixed is a well-formed payload with a fixed terminal id and a valid CRC.
const Fixed = "00020101021226460002AR012201103432300343175379290210TERMINAL01520454925303032540718000005802AR5912Toludev shop6009Argentina62170513SALE-EC094FBE63048680"

// Variable carries the sale reference as its terminal id.
const Variable = "00020101021226490002AR012201103432300343175379290213SALE-A7FA937452045492530303254064800005802AR5912Toludev shop6009Argentina62170513SALE-A7FA93746304B997"
