// Package finding defines validation findings and their severities.
package finding

import "fmt"

// Severity ranks how urgently a finding needs attention.
type Severity string

const (
	// Critical findings make wallets reject the QR.
	Critical Severity = "critical"
	// Warning findings are informational.
	Warning Severity = "warning"
)

// Code identifies the kind of problem found.
type Code string

const (
	MissingRequiredField       Code = "missing_required_field"
	InvalidSubfield            Code = "invalid_subfield"
	VariableTerminalID         Code = "variable_terminal_id"
	ReferenceInMerchantAccount Code = "reference_in_merchant_account"
	EmptyMerchantCategory      Code = "empty_merchant_category"
	InvalidMerchantCategory    Code = "invalid_merchant_category"
	CRCMismatch                Code = "crc_mismatch"
	InvalidCRCField            Code = "invalid_crc_field"
	InvalidFormatIndicator     Code = "invalid_format_indicator"
	InvalidInitiationMethod    Code = "invalid_initiation_method"
	UnexpectedCurrency         Code = "unexpected_currency"
	InvalidAmount              Code = "invalid_amount"
	UnexpectedCountry          Code = "unexpected_country"
	InvalidMerchantText        Code = "invalid_merchant_text"
	MissingReference           Code = "missing_reference"
	DuplicateField             Code = "duplicate_field"
	TrailingData               Code = "trailing_data"
	MalformedPayload           Code = "malformed_payload"
)

// Finding is a single validation result.
type Finding struct {
	Severity   Severity `json:"severity"`
	Code       Code     `json:"code"`
	FieldID    string   `json:"field_id,omitempty"`
	SubfieldID string   `json:"subfield_id,omitempty"`
	Message    string   `json:"message"`
}

// Criticalf builds a critical finding for a top-level field.
func Criticalf(code Code, fieldID, format string, args ...any) Finding {
	return Finding{Severity: Critical, Code: code, FieldID: fieldID, Message: fmt.Sprintf(format, args...)}
}

// Warningf builds a warning finding for a top-level field.
func Warningf(code Code, fieldID, format string, args ...any) Finding {
	return Finding{Severity: Warning, Code: code, FieldID: fieldID, Message: fmt.Sprintf(format, args...)}
}

// In attaches a subfield id.
func (f Finding) In(subfieldID string) Finding {
	f.SubfieldID = subfieldID
	return f
}

func (f Finding) String() string {
	where := f.FieldID
	if f.SubfieldID != "" {
		where += "." + f.SubfieldID
	}
	if where == "" {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", f.Severity, f.Code, where, f.Message)
}

// List is an ordered collection of findings.
type List []Finding

// Count returns the number of findings with the given severity.
func (l List) Count(s Severity) int {
	n := 0
	for _, f := range l {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// HasCritical reports whether any finding is critical.
func (l List) HasCritical() bool { return l.Count(Critical) > 0 }

// Has reports whether a finding with the given code is present.
func (l List) Has(code Code) bool {
	for _, f := range l {
		if f.Code == code {
			return true
		}
	}
	return false
}

// ByCode returns the findings with the given code.
func (l List) ByCode(code Code) List {
	var out List
	for _, f := range l {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// Codes returns the distinct codes in first-seen order.
func (l List) Codes() []Code {
	seen := make(map[Code]bool)
	var codes []Code
	for _, f := range l {
		if !seen[f.Code] {
			seen[f.Code] = true
			codes = append(codes, f.Code)
		}
	}
	return codes
}
