// Package duplicate flags top-level ids that appear more than once.
package duplicate

import (
	"emvqr/internal/finding"
	"emvqr/internal/registry"
)

// Rule flags repeated top-level ids.
type Rule struct{}

func init() {
	registry.Register(&Rule{})
}

func (r *Rule) Name() string       { return "duplicate_fields" }
func (r *Rule) FieldIDs() []string { return nil }
func (r *Rule) Priority() int      { return 20 }

func (r *Rule) Check(in *registry.Input, _ int) []finding.Finding {
	var out []finding.Finding
	reported := make(map[string]bool)

	for _, f := range in.Fields {
		if reported[f.ID] {
			continue
		}
		if n := in.Fields.Count(f.ID); n > 1 {
			reported[f.ID] = true
			out = append(out, finding.Warningf(finding.DuplicateField, f.ID,
				"field %s appears %d times; only the first is used", f.ID, n))
		}
	}
	return out
}
