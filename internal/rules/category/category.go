// Package category checks the merchant category code (52).
package category

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Rule checks field 52.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "merchant_category" }
func (r *Rule) FieldIDs() []string { return []string{emv.IDMerchantCategory} }
func (r *Rule) Priority() int      { return 30 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	if f.Value == "" {
		return []finding.Finding{finding.Criticalf(finding.EmptyMerchantCategory, f.ID,
			"merchant category code is empty")}
	}
	if len(f.Value) != 4 || !emv.IsNumeric(f.Value) {
		return []finding.Finding{finding.Warningf(finding.InvalidMerchantCategory, f.ID,
			"merchant category code %q must be 4 digits (ISO 18245)", f.Value)}
	}
	return nil
}
