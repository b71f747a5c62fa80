// Package registry dispatches decoded payloads to validation rules.
package registry

import (
	"sort"
	"sync"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
)

// NoField is the field index passed to payload-wide rules.
const NoField = -1

// Input is what every rule inspects.
type Input struct {
	Fields emv.Payload
	Policy Policy
}

// Field returns the field at index i.
func (in *Input) Field(i int) emv.Field { return in.Fields[i] }

// ReferenceLabel returns the reference label (62/05) if the additional data
// field decodes and carries one.
func (in *Input) ReferenceLabel() (string, bool) {
	f, ok := in.Fields.Find(emv.IDAdditionalData)
	if !ok {
		return "", false
	}
	t, err := f.Template()
	if err != nil {
		return "", false
	}
	s, ok := t.Find(emv.SubReferenceLabel)
	if !ok || s.Value == "" {
		return "", false
	}
	return s.Value, true
}

// Rule is implemented by each validation rule.
type Rule interface {
	// Name returns the rule's unique identifier.
	Name() string

	// FieldIDs returns which top-level ids this rule inspects.
	// Empty slice means the rule looks at the payload as a whole, once.
	FieldIDs() []string

	// Priority determines order when several rules share a field id.
	// Lower number = run first.
	Priority() int

	// Check inspects in.Fields[field], or the whole payload when field is NoField.
	Check(in *Input, field int) []finding.Finding
}

// Registry holds all registered rules organised for dispatch.
type Registry struct {
	mu sync.RWMutex

	// byField maps field ids to rule slices, sorted by Priority (ascending)
	byField map[string][]Rule

	// global holds payload-wide rules
	global []Rule

	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		byField: make(map[string][]Rule),
	}
}

var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a rule to the default registry.
// Called during init() in each rule package.
func Register(r Rule) {
	defaultRegistry.Register(r)
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := rule.FieldIDs()
	if len(ids) == 0 {
		r.global = append(r.global, rule)
	} else {
		for _, id := range ids {
			r.byField[id] = append(r.byField[id], rule)
		}
	}
	r.sorted = false
}

// Sort sorts all rule slices by priority.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	for id := range r.byField {
		rules := r.byField[id]
		sort.SliceStable(rules, func(i, j int) bool {
			return rules[i].Priority() < rules[j].Priority()
		})
	}

	sort.SliceStable(r.global, func(i, j int) bool {
		return r.global[i].Priority() < r.global[j].Priority()
	})

	r.sorted = true
}

// Dispatch runs every applicable rule and returns the findings in order:
// payload-wide rules first, then field rules in payload order.
func (r *Registry) Dispatch(in *Input) finding.List {
	r.Sort()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out finding.List

	for _, rule := range r.global {
		out = append(out, rule.Check(in, NoField)...)
	}

	for i, f := range in.Fields {
		for _, rule := range r.byField[f.ID] {
			out = append(out, rule.Check(in, i)...)
		}
	}

	return out
}

// RegisteredFieldIDs returns all field ids that have rules registered.
func (r *Registry) RegisteredFieldIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byField))
	for id := range r.byField {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RuleCount returns the total number of unique registered rules.
// Rules registered for multiple ids are only counted once.
func (r *Registry) RuleCount() int {
	return len(r.AllRules())
}

// AllRules returns all registered rules, payload-wide first, sorted by name
// within each group.
func (r *Registry) AllRules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Rule

	for _, rule := range r.global {
		if !seen[rule.Name()] {
			seen[rule.Name()] = true
			result = append(result, rule)
		}
	}

	var scoped []Rule
	for _, rules := range r.byField {
		for _, rule := range rules {
			if !seen[rule.Name()] {
				seen[rule.Name()] = true
				scoped = append(scoped, rule)
			}
		}
	}
	sort.Slice(scoped, func(i, j int) bool { return scoped[i].Name() < scoped[j].Name() })

	return append(result, scoped...)
}
