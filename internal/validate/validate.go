// Package validate checks decoded payloads against the rules registered in
// internal/rules.
package validate

import (
	"fmt"

	"emvqr/internal/emv"
	"emvqr/internal/finding"
	"emvqr/internal/registry"
	_ "emvqr/internal/rules"
)

// Policy is the set of deployment expectations rules compare against.
type Policy = registry.Policy

// DefaultPolicy returns the policy for Argentine bank-transfer QR codes.
func DefaultPolicy() Policy { return registry.DefaultPolicy() }

type options struct {
	policy   Policy
	registry *registry.Registry
}

// Option configures a validation run.
type Option func(*options)

// WithPolicy overrides the default policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithRegistry runs the rules of r instead of the default registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

func apply(opts []Option) options {
	o := options{policy: DefaultPolicy(), registry: registry.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate runs every rule over fields. It never fails; problems are
// returned as findings.
func Validate(fields emv.Payload, opts ...Option) finding.List {
	o := apply(opts)
	return o.registry.Dispatch(&registry.Input{Fields: fields, Policy: o.policy})
}

// Trace is Validate with one record per rule evaluation.
func Trace(fields emv.Payload, opts ...Option) []registry.TraceResult {
	o := apply(opts)
	return o.registry.Trace(&registry.Input{Fields: fields, Policy: o.policy})
}

// Payload decodes raw and validates the result. A decode error is returned
// as is with no findings. Characters after the CRC field add a trailing_data
// warning.
func Payload(raw string, opts ...Option) (emv.Decoded, finding.List, error) {
	d, err := emv.Decode(raw)
	if err != nil {
		return d, nil, err
	}

	findings := Validate(d.Fields, opts...)
	if d.Trailing != nil {
		findings = append(findings, finding.Warningf(finding.TrailingData, "",
			"%d character(s) after the CRC field at offset %d: %s",
			len(d.Trailing.Data), d.Trailing.Offset, quote(d.Trailing.Data)))
	}
	return d, findings, nil
}

func quote(s string) string {
	const max = 32
	if len(s) > max {
		return fmt.Sprintf("%q...", s[:max])
	}
	return fmt.Sprintf("%q", s)
}
