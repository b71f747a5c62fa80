// Package additional checks the additional data field template (62), which
// is where per-transaction references belong.
package additional

import (
	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// MaxSubfieldLength is the longest value any 62 subfield may carry.
const MaxSubfieldLength = 25

// Rule checks field 62. It is payload-wide so that a missing 62 can be
// reported too.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "additional_data" }
func (r *Rule) FieldIDs() []string { return nil }
func (r *Rule) Priority() int      { return 30 }

func (r *Rule) Check(in *registry.Input, _ int) []finding.Finding {
	f, ok := in.Fields.Find(emv.IDAdditionalData)
	if !ok {
		return []finding.Finding{finding.Warningf(finding.MissingReference, emv.IDAdditionalData,
			"no additional data field; the sale reference has nowhere to go")}
	}

	t, err := f.Template()
	if err != nil {
		return []finding.Finding{finding.Criticalf(finding.InvalidSubfield, f.ID,
			"additional data template does not decode: %v", err)}
	}

	var out []finding.Finding
	for _, s := range t {
		if s.Length > MaxSubfieldLength {
			out = append(out, finding.Warningf(finding.InvalidSubfield, f.ID,
				"%s is %d characters, limit is %d",
				emv.SubfieldName(emv.AdditionalDataTemplate, s.ID), s.Length, MaxSubfieldLength).In(s.ID))
		}
	}

	if ref, ok := t.Find(emv.SubReferenceLabel); !ok || ref.Value == "" {
		out = append(out, finding.Warningf(finding.MissingReference, f.ID,
			"additional data has no reference label").In(emv.SubReferenceLabel))
	}
	return out
}
