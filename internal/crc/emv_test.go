package crc

import (
	"errors"
	"testing"
)

// Payloads with checksums computed independently of this package.
var testCases = []struct {
	name     string
	data     string // Everything up to and including "6304".
	checksum string
}{
	{
		name:     "fixed terminal, amount 1800000",
		data:     "00020101021226460002AR012201103432300343175379290210TERMINAL01520454925303032540718000005802AR5912Toludev shop6009Argentina62170513SALE-EC094FBE6304",
		checksum: "8680",
	},
	{
		name:     "variable terminal, amount 480000",
		data:     "00020101021226490002AR012201103432300343175379290213SALE-A7FA937452045492530303254064800005802AR5912Toludev shop6009Argentina62170513SALE-A7FA93746304",
		checksum: "B997",
	},
	{
		name:     "catalogue check string",
		data:     "123456789",
		checksum: "29B1",
	},
}

func TestChecksum(t *testing.T) {
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Checksum(tc.data)
			if err != nil {
				t.Fatalf("Checksum() error = %v", err)
			}
			if Format(got) != tc.checksum {
				t.Errorf("Checksum() = %s, want %s", Format(got), tc.checksum)
			}
		})
	}
}

func TestTableMatchesBitwise(t *testing.T) {
	inputs := []string{
		"",
		"6304",
		"000201",
		"The quick brown fox jumps over the lazy dog",
		testCases[0].data,
		testCases[1].data,
	}
	for _, in := range inputs {
		if got, want := Table16([]byte(in), Init), Bitwise([]byte(in), Init); got != want {
			t.Errorf("Table16(%q) = %04X, Bitwise = %04X", in, got, want)
		}
	}
}

func TestChecksumDeterministic(t *testing.T) {
	data := testCases[0].data
	first, _ := Checksum(data)
	for i := 0; i < 100; i++ {
		again, _ := Checksum(data)
		if again != first {
			t.Fatalf("run %d: got %04X, first run %04X", i, again, first)
		}
	}
}

func TestChecksumEmptyInput(t *testing.T) {
	got, err := Checksum("")
	if err != nil {
		t.Fatalf("Checksum(\"\") error = %v", err)
	}
	if got != Init {
		t.Errorf("Checksum(\"\") = %04X, want preset %04X", got, Init)
	}
}

func TestChecksumRejectsNonASCII(t *testing.T) {
	_, err := Checksum("5912Pañadería6304")
	if !errors.Is(err, ErrNonASCII) {
		t.Fatalf("expected ErrNonASCII, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    uint16
		want string
	}{
		{0x0000, "0000"},
		{0x000A, "000A"},
		{0x0AE8, "0AE8"},
		{0x8680, "8680"},
		{0xFFFF, "FFFF"},
	}
	for _, tt := range tests {
		if got := Format(tt.v); got != tt.want {
			t.Errorf("Format(%04X) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   uint16
		wantOK bool
	}{
		{"8680", 0x8680, true},
		{"b997", 0xB997, true},
		{"0000", 0x0000, true},
		{"868", 0, false},
		{"86800", 0, false},
		{"XYZW", 0, false},
		{"+123", 0, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Parse(%q) = %04X, %v; want %04X, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsHexDigit(t *testing.T) {
	tests := []struct {
		c    byte
		want bool
	}{
		{'0', true}, {'9', true},
		{'A', true}, {'F', true},
		{'a', true}, {'f', true},
		{'G', false}, {'g', false},
		{' ', false}, {'-', false},
	}
	for _, tt := range tests {
		if got := IsHexDigit(tt.c); got != tt.want {
			t.Errorf("IsHexDigit(%q) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestIsUpperHex(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"8680", true},
		{"B997", true},
		{"b997", false},
		{"", false},
		{"12G4", false},
	}
	for _, tt := range tests {
		if got := IsUpperHex(tt.s); got != tt.want {
			t.Errorf("IsUpperHex(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
