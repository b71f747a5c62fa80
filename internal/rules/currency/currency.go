// Package currency checks the transaction currency (53).
package currency

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Rule checks field 53.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "currency" }
func (r *Rule) FieldIDs() []string { return []string{emv.IDCurrency} }
func (r *Rule) Priority() int      { return 30 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	if len(f.Value) != 3 || !emv.IsNumeric(f.Value) {
		return []finding.Finding{finding.Warningf(finding.UnexpectedCurrency, f.ID,
			"currency %q must be a 3-digit ISO 4217 numeric code", f.Value)}
	}
	if want := in.Policy.Currency; want != "" && f.Value != want {
		return []finding.Finding{finding.Warningf(finding.UnexpectedCurrency, f.ID,
			"currency is %s, want %s", f.Value, want)}
	}
	return nil
}
