// Package amount checks the transaction amount (54).
package amount

import (
	"strings"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

const maxLength = 13

// Rule checks field 54.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "amount" }
func (r *Rule) FieldIDs() []string { return []string{emv.IDAmount} }
func (r *Rule) Priority() int      { return 30 }

func (r *Rule) Check(in *registry.Input, i int) []finding.Finding {
	f := in.Field(i)

	if len(f.Value) > maxLength {
		return []finding.Finding{finding.Warningf(finding.InvalidAmount, f.ID,
			"amount %q is longer than %d characters", f.Value, maxLength)}
	}
	if !Valid(f.Value) {
		return []finding.Finding{finding.Warningf(finding.InvalidAmount, f.ID,
			"amount %q must be digits with at most one decimal point", f.Value)}
	}
	return nil
}

// Valid reports whether v is a well-formed amount: digits, optionally split
// by a single '.', with at least one digit overall.
func Valid(v string) bool {
	whole, frac, _ := strings.Cut(v, ".")
	if whole == "" && frac == "" {
		return false
	}
	for _, part := range []string{whole, frac} {
		if part != "" && !emv.IsNumeric(part) {
			return false
		}
	}
	return true
}
