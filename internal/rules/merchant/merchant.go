// Package merchant checks merchant account information templates (26-51).
//
// Bank-transfer schemes carry a country code in subfield 00, a bank account
// identifier in 01 and a terminal identifier in 02. Card and wallet schemes
// put a reverse-domain globally unique identifier in 00 instead, and their
// 01 is a scheme-specific merchant id that is not checked here.
package merchant

import (
	"strings"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Rule checks merchant account information templates.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

var templateIDs = func() []string {
	ids := make([]string, 0, 26)
	for n := 26; n <= 51; n++ {
		ids = append(ids, string([]byte{byte('0' + n/10), byte('0' + n%10)}))
	}
	return ids
}()

func (r *Rule) Name() string       { return "merchant_account" }
func (r *Rule) FieldIDs() []string { return templateIDs }
func (r *Rule) Priority() int      { return 20 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	t, err := f.Template()
	if err != nil {
		return []finding.Finding{finding.Criticalf(finding.InvalidSubfield, f.ID,
			"merchant account template does not decode: %v", err)}
	}

	var out []finding.Finding
	out = append(out, checkScheme(in.Policy, f.ID, t)...)
	out = append(out, checkReferences(in, f.ID, t)...)
	return out
}

// IsGUID reports whether a subfield 00 value is a reverse-domain identifier
// such as com.mercadopago rather than a country code.
func IsGUID(v string) bool {
	return strings.Contains(v, ".")
}

func checkScheme(p registry.Policy, id string, t emv.Template) []finding.Finding {
	scheme, ok := t.Find(emv.SubCountry)
	if !ok {
		return []finding.Finding{finding.Warningf(finding.InvalidSubfield, id,
			"merchant account template has no subfield 00").In(emv.SubCountry)}
	}
	if IsGUID(scheme.Value) {
		return nil
	}

	var out []finding.Finding
	if p.Country != "" && scheme.Value != p.Country {
		out = append(out, finding.Warningf(finding.InvalidSubfield, id,
			"country subfield is %q, want %q", scheme.Value, p.Country).In(emv.SubCountry))
	}

	account, ok := t.Find(emv.SubAccount)
	switch {
	case !ok:
		out = append(out, finding.Warningf(finding.InvalidSubfield, id,
			"bank account identifier subfield is missing").In(emv.SubAccount))
	case p.AccountLength > 0 && (len(account.Value) != p.AccountLength || !emv.IsNumeric(account.Value)):
		out = append(out, finding.Warningf(finding.InvalidSubfield, id,
			"bank account identifier %q must be exactly %d decimal digits", account.Value, p.AccountLength).In(emv.SubAccount))
	}
	return out
}

// Shorter reference labels match too much by accident.
const minCorrelatedLength = 4

// checkReferences flags subfields carrying a per-transaction token. The
// terminal id is compared against 62/05 by substring and shared hex run;
// other subfields need the whole label as a token, and a numeric bank
// account in 01 is never compared.
func checkReferences(in *registry.Input, id string, t emv.Template) []finding.Finding {
	ref, _ := in.ReferenceLabel()
	if len(ref) < minCorrelatedLength {
		ref = ""
	}
	scheme, _ := t.Find(emv.SubCountry)
	bank := scheme.Value != "" && !IsGUID(scheme.Value)

	var out []finding.Finding
	for _, s := range t {
		switch {
		case s.Value == "":
			continue
		case s.ID == emv.SubCountry && IsGUID(s.Value):
			continue
		case s.ID == emv.SubAccount && bank && emv.IsNumeric(s.Value):
			continue
		}

		if s.ID == emv.SubTerminal {
			correlated := ref != "" && (strings.Contains(s.Value, ref) || registry.SharesHexRun(s.Value, ref))
			if !correlated && !in.Policy.LooksLikeReference(s.Value) {
				continue
			}
			msg := "terminal identifier %q looks like a transaction reference; it must be fixed per point of sale"
			if correlated {
				msg = "terminal identifier %q repeats the sale reference; it must be fixed per point of sale"
			}
			out = append(out, finding.Criticalf(finding.VariableTerminalID, id, msg, s.Value).In(s.ID))
			continue
		}

		if !(ref != "" && containsToken(s.Value, ref)) && !in.Policy.LooksLikeReference(s.Value) {
			continue
		}
		out = append(out, finding.Criticalf(finding.ReferenceInMerchantAccount, id,
			"subfield %s (%s) carries transaction reference %q; references belong in field 62",
			s.ID, emv.SubfieldName(emv.MerchantAccountTemplate, s.ID), s.Value).In(s.ID))
	}
	return out
}

// containsToken reports whether tok occurs in v bounded on both sides by
// a non-alphanumeric character or the end of v.
func containsToken(v, tok string) bool {
	for from := 0; from <= len(v)-len(tok); {
		i := strings.Index(v[from:], tok)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(tok)
		if (start == 0 || !isAlnum(v[start-1])) && (end == len(v) || !isAlnum(v[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}
