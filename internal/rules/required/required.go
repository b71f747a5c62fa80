// Package required checks that every mandatory top-level field is present.
package required

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

var mandatory = []string{
	emv.IDPayloadFormat,
	emv.IDInitiationMethod,
	emv.IDMerchantCategory,
	emv.IDCurrency,
	emv.IDCountry,
	emv.IDMerchantName,
	emv.IDMerchantCity,
	emv.IDCRC,
}

// Rule flags missing mandatory fields.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "required_fields" }
func (r *Rule) FieldIDs() []string { return nil }
func (r *Rule) Priority() int      { return 10 }

func (r *Rule) Check(in *registry.Input, _ int) []finding.Finding {
	var out []finding.Finding

	for _, id := range mandatory {
		if in.Fields.Index(id) < 0 {
			out = append(out, finding.Criticalf(finding.MissingRequiredField, id,
				"required field %s (%s) is missing", id, emv.Name(id)))
		}
	}

	if len(in.Fields.MerchantAccounts()) == 0 {
		out = append(out, finding.Criticalf(finding.MissingRequiredField, "",
			"no merchant account information field (02-51) is present"))
	}

	return out
}
