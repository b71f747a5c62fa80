package crc

import "github.com/sigurn/crc16"

// Variant is a named CRC-16 algorithm backed by a precomputed table.
type Variant struct {
	Name  string
	table *crc16.Table
}

// NewVariant builds the lookup table for p.
func NewVariant(name string, p crc16.Params) Variant {
	return Variant{Name: name, table: crc16.MakeTable(p)}
}

// Checksum computes the variant over data.
func (v Variant) Checksum(data []byte) uint16 {
	return crc16.Checksum(data, v.table)
}

// EMV is the variant EMV QR payloads must be sealed with.
var EMV = NewVariant("CCITT-FALSE", crc16.CRC16_CCITT_FALSE)

// Variants lists the CRC-16 algorithms producers commonly confuse with the
// EMV one. EMV is first.
var Variants = []Variant{
	EMV,
	NewVariant("XMODEM", crc16.CRC16_XMODEM),
	NewVariant("KERMIT", crc16.CRC16_KERMIT),
	NewVariant("AUG-CCITT", crc16.CRC16_AUG_CCITT),
	NewVariant("GENIBUS", crc16.CRC16_GENIBUS),
	NewVariant("X-25", crc16.CRC16_X_25),
	NewVariant("ARC", crc16.CRC16_ARC),
	NewVariant("MODBUS", crc16.CRC16_MODBUS),
}

// Input is one candidate byte range a producer may have checksummed.
type Input struct {
	Label string
	Data  string
}

// Match records a variant/input pair reproducing the declared checksum.
type Match struct {
	Variant string `json:"variant"`
	Input   string `json:"input"`
}

// Probe tries every variant against every candidate input and returns the
// combinations that reproduce declared.
func Probe(inputs []Input, declared uint16) []Match {
	var matches []Match
	for _, in := range inputs {
		for _, v := range Variants {
			if v.Checksum([]byte(in.Data)) == declared {
				matches = append(matches, Match{Variant: v.Name, Input: in.Label})
			}
		}
	}
	return matches
}
