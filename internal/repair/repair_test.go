package repair

import (
	"testing"
)

const (
	fixedTerminal    = "00020101021226460002AR012201103432300343175379290210TERMINAL01520454925303032540718000005802AR5912Toludev shop6009Argentina62170513SALE-EC094FBE63048680"
	variableTerminal = "00020101021226490002AR012201103432300343175379290213SALE-A7FA937452045492530303254064800005802AR5912Toludev shop6009Argentina62170513SALE-A7FA93746304B997"
)

func withCRC(payload, crc string) string {
	return payload[:len(payload)-4] + crc
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		corrected string
		changed   bool
		declared  string
		computed  string
		reason    string
	}{
		{"stale crc", withCRC(fixedTerminal, "AAAA"), fixedTerminal, true, "AAAA", "8680", ""},
		{"valid crc", fixedTerminal, fixedTerminal, false, "8680", "8680", ReasonValid},
		{"variable terminal", withCRC(variableTerminal, "0000"), variableTerminal, true, "0000", "B997", ""},
		{"lowercase crc", withCRC(variableTerminal, "b997"), variableTerminal, true, "b997", "B997", ""},
		{"trailing data kept", withCRC(fixedTerminal, "AAAA") + "XYZ", fixedTerminal + "XYZ", true, "AAAA", "8680", ""},
		{"no crc field", "000201010211", "000201010211", false, "", "", ReasonNoCRC},
		{"short crc field", "0002010102116303ABC", "0002010102116303ABC", false, "ABC", "", ReasonBadLength},
		{"malformed", "00020101", "00020101", false, "", "", ReasonMalformed},
		{"empty", "", "", false, "", "", ReasonNoCRC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Repair(tt.payload)
			if r.Corrected != tt.corrected {
				t.Errorf("Corrected =\n%s\nwant\n%s", r.Corrected, tt.corrected)
			}
			if r.Changed != tt.changed {
				t.Errorf("Changed = %v, want %v", r.Changed, tt.changed)
			}
			if r.Declared != tt.declared || r.Computed != tt.computed {
				t.Errorf("Declared/Computed = %s/%s, want %s/%s", r.Declared, r.Computed, tt.declared, tt.computed)
			}
			if r.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", r.Reason, tt.reason)
			}
			if r.Original != tt.payload {
				t.Errorf("Original = %q", r.Original)
			}
		})
	}
}

func TestRepairIdempotent(t *testing.T) {
	for _, p := range []string{
		withCRC(fixedTerminal, "AAAA"),
		withCRC(variableTerminal, "1234") + "tail",
		"garbage",
	} {
		once := Repair(p)
		twice := Repair(once.Corrected)
		if twice.Corrected != once.Corrected {
			t.Errorf("Repair not idempotent for %q", p)
		}
		if twice.Changed {
			t.Errorf("second Repair changed %q", once.Corrected)
		}
	}
}

func TestRepairReplacesWholeField(t *testing.T) {
	// The 4 characters after the CRC field must not be mistaken for the CRC.
	p := withCRC(fixedTerminal, "AAAA") + "6304"
	r := Repair(p)
	if want := fixedTerminal + "6304"; r.Corrected != want {
		t.Errorf("Corrected = %s, want %s", r.Corrected, want)
	}
	if len(r.Corrected) != len(p) {
		t.Errorf("length changed from %d to %d", len(p), len(r.Corrected))
	}
}

func TestRepairLeavesOtherBytes(t *testing.T) {
	p := withCRC(variableTerminal, "FFFF")
	r := Repair(p)
	if r.Corrected[:len(p)-4] != p[:len(p)-4] {
		t.Error("bytes before the CRC value changed")
	}
}
