// Package checker runs the full check of one payment QR: diagnostics,
// CRC repair, bitmap reconciliation and recording of the result.
package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"emvqr/internal/qrimage"
	"emvqr/internal/repair"
	"emvqr/internal/report"
	"emvqr/internal/storage"
	"emvqr/internal/validate"
)

// Sources recorded on each check.
const (
	SourceCLI   = "cli"
	SourceAPI   = "api"
	SourceNATS  = "nats"
	SourceSweep = "sweep"
)

// Request is one payload to check. QRCode is the bitmap currently shown to
// payers as a PNG data URL; when present the bitmap is regenerated after a
// CRC repair.
type Request struct {
	Payload   string `json:"payload"`
	QRCode    string `json:"qr_code,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Outcome is the result of a check. Payload and QRCode are the values the
// record should carry afterwards: the corrected pair when the bitmap was
// re-rendered, the original pair when rendering failed. Without a bitmap,
// Payload is the repaired payload.
type Outcome struct {
	RunID       string        `json:"run_id"`
	PaymentID   string        `json:"payment_id,omitempty"`
	Report      report.Report `json:"report"`
	Payload     string        `json:"payload"`
	QRCode      string        `json:"qr_code,omitempty"`
	Rendered    bool          `json:"rendered"`
	RenderError string        `json:"render_error,omitempty"`
}

// Check converts the outcome to its persisted form.
func (o *Outcome) Check(source string, at time.Time) storage.Check {
	c := storage.Check{
		RunID:       o.RunID,
		CheckedAt:   at,
		Source:      source,
		PaymentID:   o.PaymentID,
		Payload:     o.Report.Payload,
		Changed:     o.Report.Repair.Changed,
		DeclaredCRC: o.Report.Repair.Declared,
		ComputedCRC: o.Report.Repair.Computed,
		Rendered:    o.Rendered,
		RenderError: o.RenderError,
		Critical:    o.Report.Critical,
		Warnings:    o.Report.Warnings,
		Findings:    o.Report.Findings,
	}
	if c.Changed {
		c.Corrected = o.Report.Repair.Corrected
	}
	return c
}

// History stores checks locally.
type History interface {
	Insert(c storage.Check) (int64, error)
}

// Auditor keeps the audit trail of payment repairs.
type Auditor interface {
	RecordRepair(ctx context.Context, c storage.Check) error
}

// Analytics receives checks for aggregate reporting.
type Analytics interface {
	InsertBatch(ctx context.Context, checks []storage.Check) error
}

// Checker checks payloads and records the outcomes. Every recorder is
// optional; recording errors are logged and never fail a check.
type Checker struct {
	Options       []validate.Option
	Renderer      repair.Renderer
	RenderTimeout time.Duration

	History   History
	Auditor   Auditor
	Analytics Analytics

	Logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New returns a checker rendering with r.
func New(r repair.Renderer, logger zerolog.Logger) *Checker {
	return &Checker{
		Renderer:      r,
		RenderTimeout: repair.DefaultRenderTimeout,
		Logger:        logger,
	}
}

func (c *Checker) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

func (c *Checker) runID() string {
	if c.newID != nil {
		return c.newID()
	}
	return uuid.NewString()
}

// Check runs one request and records it.
func (c *Checker) Check(ctx context.Context, req Request) Outcome {
	out := c.evaluate(ctx, c.runID(), req)
	c.record(ctx, req.Source, []Outcome{out})
	return out
}

func (c *Checker) evaluate(ctx context.Context, runID string, req Request) Outcome {
	rep := report.Build(req.Payload, c.Options...)
	out := Outcome{
		RunID:     runID,
		PaymentID: req.PaymentID,
		Report:    rep,
		Payload:   req.Payload,
		QRCode:    req.QRCode,
	}

	if req.QRCode == "" {
		if rep.Repair.Changed {
			out.Payload = rep.Repair.Corrected
		}
		return out
	}

	bitmap, err := qrimage.DecodeDataURL(req.QRCode)
	if err != nil {
		out.RenderError = fmt.Sprintf("qr_code: %v", err)
		return out
	}

	rec := repair.Reconcile(ctx, repair.Record{Payload: req.Payload, Bitmap: bitmap}, c.Renderer, c.RenderTimeout)
	if rec.RenderErr != nil {
		out.RenderError = rec.RenderErr.Error()
		c.Logger.Warn().
			Err(rec.RenderErr).
			Str("payment_id", req.PaymentID).
			Msg("bitmap not regenerated, keeping original payload")
		return out
	}
	if rec.Rendered {
		out.Rendered = true
		out.Payload = rec.Record.Payload
		out.QRCode = qrimage.EncodeDataURL(rec.Record.Bitmap)
	}
	return out
}

func (c *Checker) record(ctx context.Context, source string, outs []Outcome) {
	if len(outs) == 0 {
		return
	}
	if source == "" {
		source = SourceCLI
	}

	at := c.clock()
	checks := make([]storage.Check, 0, len(outs))
	for i := range outs {
		checks = append(checks, outs[i].Check(source, at))
	}

	if c.History != nil {
		for _, ch := range checks {
			if _, err := c.History.Insert(ch); err != nil {
				c.Logger.Error().Err(err).Str("run_id", ch.RunID).Msg("history insert failed")
			}
		}
	}

	if c.Auditor != nil {
		for _, ch := range checks {
			if ch.PaymentID == "" || (!ch.Changed && ch.Critical == 0) {
				continue
			}
			if err := c.Auditor.RecordRepair(ctx, ch); err != nil {
				c.Logger.Error().Err(err).Str("payment_id", ch.PaymentID).Msg("repair audit failed")
			}
		}
	}

	if c.Analytics != nil {
		if err := c.Analytics.InsertBatch(ctx, checks); err != nil {
			c.Logger.Error().Err(err).Int("checks", len(checks)).Msg("analytics insert failed")
		}
	}

	for _, ch := range checks {
		ev := c.Logger.Debug()
		if ch.Critical > 0 || ch.Changed {
			ev = c.Logger.Info()
		}
		ev.Str("run_id", ch.RunID).
			Str("payment_id", ch.PaymentID).
			Bool("changed", ch.Changed).
			Bool("rendered", ch.Rendered).
			Int("critical", ch.Critical).
			Int("warnings", ch.Warnings).
			Str("codes", ch.Codes()).
			Msg("qr checked")
	}
}
