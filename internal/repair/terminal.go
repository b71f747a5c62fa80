package repair

import (
	"errors"
	"fmt"

	"emvqr/internal/emv"
)

var (
	ErrNoMerchantAccount = errors.New("repair: no merchant account template")
	ErrEmptyTerminalID   = errors.New("repair: terminal id is empty")
)

// ReplaceTerminalID rewrites the terminal identifier (subfield 02) of the
// first merchant account template with a fixed value and reseals the CRC.
// Unlike Repair, this changes what the QR means, so it only runs on explicit
// request. Characters after the CRC field are dropped.
func ReplaceTerminalID(payload, terminalID string) (Result, error) {
	r := Result{Original: payload, Corrected: payload}
	if terminalID == "" {
		return r, ErrEmptyTerminalID
	}

	d, err := emv.Decode(payload)
	if err != nil {
		return r, err
	}
	if f, ok := d.Fields.Find(emv.IDCRC); ok {
		r.Declared = f.Value
	}

	fields := append(emv.Payload{}, d.Fields...)
	idx := -1
	for i, f := range fields {
		if f.Kind() == emv.MerchantAccountTemplate {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r, ErrNoMerchantAccount
	}

	t, err := fields[idx].Template()
	if err != nil {
		return r, fmt.Errorf("repair: merchant account %s: %w", fields[idx].ID, err)
	}
	t = setSubfield(t, emv.SubTerminal, terminalID)

	f, err := emv.TemplateField(fields[idx].ID, t)
	if err != nil {
		return r, err
	}
	fields[idx] = f

	sealed, err := emv.Seal(fields)
	if err != nil {
		return r, err
	}

	r.Corrected = sealed
	r.Computed = sealed[len(sealed)-4:]
	r.Changed = sealed != payload
	return r, nil
}

func setSubfield(t emv.Template, id, value string) emv.Template {
	out := make(emv.Template, 0, len(t)+1)
	replaced := false
	for _, s := range t {
		if s.ID == id {
			if !replaced {
				out = append(out, emv.NewSubfield(id, value))
				replaced = true
			}
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, emv.NewSubfield(id, value))
	}
	return out
}
