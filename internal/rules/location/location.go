// Package location checks the merchant country (58), name (59) and city (60).
package location

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

const (
	maxNameLength = 25
	maxCityLength = 15
)

// Rule checks fields 58, 59 and 60.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string { return "merchant_location" }
func (r *Rule) FieldIDs() []string {
	return []string{emv.IDCountry, emv.IDMerchantName, emv.IDMerchantCity}
}
func (r *Rule) Priority() int { return 30 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	switch f.ID {
	case emv.IDCountry:
		if !isCountryCode(f.Value) {
			return []finding.Finding{finding.Warningf(finding.UnexpectedCountry, f.ID,
				"country %q must be a 2-letter ISO 3166-1 code", f.Value)}
		}
		if want := in.Policy.Country; want != "" && f.Value != want {
			return []finding.Finding{finding.Warningf(finding.UnexpectedCountry, f.ID,
				"country is %s, want %s", f.Value, want)}
		}
	case emv.IDMerchantName:
		return checkText(f, "merchant name", maxNameLength)
	case emv.IDMerchantCity:
		return checkText(f, "merchant city", maxCityLength)
	}
	return nil
}

func checkText(f emv.Field, what string, max int) []finding.Finding {
	switch {
	case f.Value == "":
		return []finding.Finding{finding.Warningf(finding.InvalidMerchantText, f.ID, "%s is empty", what)}
	case len(f.Value) > max:
		return []finding.Finding{finding.Warningf(finding.InvalidMerchantText, f.ID,
			"%s %q is %d characters, limit is %d", what, f.Value, len(f.Value), max)}
	}
	return nil
}

func isCountryCode(s string) bool {
	return len(s) == 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z'
}
