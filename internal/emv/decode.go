package emv

// Decoded is the result of decoding a top-level payload.
type Decoded struct {
	Fields   Payload
	Trailing *TrailingData // Non-nil when characters follow the CRC field.
}

// Decode splits a payload into its ordered top-level fields. Template values
// are left as-is; see DecodeTemplate.
//
// Decoding stops after the CRC field. Anything that follows it is reported in
// Decoded.Trailing rather than as an error.
func Decode(payload string) (Decoded, error) {
	if err := checkPrintable(payload); err != nil {
		return Decoded{}, err
	}

	var d Decoded
	off := 0
	for off < len(payload) {
		id, value, next, err := readTLV(payload, off)
		if err != nil {
			return Decoded{}, err
		}
		d.Fields = append(d.Fields, Field{ID: id, Length: len(value), Value: value, Offset: off})
		off = next

		if id == IDCRC && off < len(payload) {
			d.Trailing = &TrailingData{Offset: off, Data: payload[off:]}
			break
		}
	}
	return d, nil
}

// DecodeTemplate decodes a template field's value into subfields. The whole
// value must be consumed.
func DecodeTemplate(value string) (Template, error) {
	if err := checkPrintable(value); err != nil {
		return nil, err
	}

	var t Template
	off := 0
	for off < len(value) {
		id, v, next, err := readTLV(value, off)
		if err != nil {
			return nil, err
		}
		t = append(t, Subfield{ID: id, Length: len(v), Value: v, Offset: off})
		off = next
	}
	return t, nil
}

// readTLV reads one id/length/value triple starting at off.
func readTLV(s string, off int) (id, value string, next int, err error) {
	if len(s)-off < 2 {
		return "", "", 0, &MalformedFieldError{Offset: off, Reason: ErrShortID}
	}
	id = s[off : off+2]
	if !IsNumeric(id) {
		return "", "", 0, &MalformedFieldError{Offset: off, Reason: ErrInvalidID}
	}
	off += 2

	if len(s)-off < 2 {
		return "", "", 0, &MalformedFieldError{Offset: off, ID: id, Reason: ErrShortLength}
	}
	// strconv.Atoi would accept "+5" and "-1"; lengths are strictly two digits.
	lenStr := s[off : off+2]
	if !IsNumeric(lenStr) {
		return "", "", 0, &MalformedFieldError{Offset: off, ID: id, Reason: ErrInvalidLength}
	}
	length := int(lenStr[0]-'0')*10 + int(lenStr[1]-'0')
	off += 2

	if off+length > len(s) {
		return "", "", 0, &MalformedFieldError{Offset: off, ID: id, Reason: ErrValueOverrun}
	}
	return id, s[off : off+length], off + length, nil
}

func checkPrintable(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return &MalformedFieldError{Offset: i, Reason: ErrNonASCII}
		}
	}
	return nil
}
