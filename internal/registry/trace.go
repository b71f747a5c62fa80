package registry

import "emvqr/internal/finding"

// TraceResult records one rule evaluation.
type TraceResult struct {
	Rule     string       `json:"rule"`
	FieldID  string       `json:"field_id,omitempty"` // Empty for payload-wide rules.
	Findings finding.List `json:"findings,omitempty"`
}

// Trace runs the same rules as Dispatch but keeps one record per evaluation,
// including evaluations that found nothing.
func (r *Registry) Trace(in *Input) []TraceResult {
	r.Sort()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []TraceResult

	for _, rule := range r.global {
		out = append(out, TraceResult{
			Rule:     rule.Name(),
			Findings: rule.Check(in, NoField),
		})
	}

	for i, f := range in.Fields {
		for _, rule := range r.byField[f.ID] {
			out = append(out, TraceResult{
				Rule:     rule.Name(),
				FieldID:  f.ID,
				Findings: rule.Check(in, i),
			})
		}
	}

	return out
}
