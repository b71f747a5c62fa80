// Package storage persists QR check results: a local SQLite history, a
// PostgreSQL payment source with its repair audit table, and ClickHouse
// findings analytics.
package storage

import (
	"strings"
	"time"

	"emvqr/internal/finding"
)

// Check is one payload check as persisted by every backend.
type Check struct {
	ID          int64        `json:"id,omitempty"`
	RunID       string       `json:"run_id"`
	CheckedAt   time.Time    `json:"checked_at"`
	Source      string       `json:"source"` // cli, api, nats or sweep.
	PaymentID   string       `json:"payment_id,omitempty"`
	Payload     string       `json:"payload"`
	Corrected   string       `json:"corrected,omitempty"`
	Changed     bool         `json:"changed"`
	DeclaredCRC string       `json:"declared_crc,omitempty"`
	ComputedCRC string       `json:"computed_crc,omitempty"`
	Rendered    bool         `json:"rendered"`
	RenderError string       `json:"render_error,omitempty"`
	Critical    int          `json:"critical"`
	Warnings    int          `json:"warnings"`
	Findings    finding.List `json:"findings,omitempty"`
}

// Codes returns the distinct finding codes, comma separated, in first-seen order.
func (c Check) Codes() string {
	return JoinCodes(c.Findings)
}

// JoinCodes returns the distinct codes of l, comma separated.
func JoinCodes(l finding.List) string {
	codes := l.Codes()
	s := make([]string, len(codes))
	for i, code := range codes {
		s[i] = string(code)
	}
	return strings.Join(s, ",")
}
