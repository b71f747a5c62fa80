package checker

import (
	"context"
	"errors"
	"fmt"

	"emvqr/internal/storage"
)

// PaymentSource lists payments whose QR should be checked.
type PaymentSource interface {
	PendingQRPayments(ctx context.Context, limit int) ([]storage.Payment, error)
}

// PaymentLookup fetches one payment record. A nil payment means the id is
// unknown.
type PaymentLookup interface {
	GetPayment(ctx context.Context, id string) (*storage.Payment, error)
}

// ErrPaymentNotFound is returned by CheckPayment for an unknown payment id.
var ErrPaymentNotFound = errors.New("payment not found")

// Summary counts the outcomes of a sweep.
type Summary struct {
	RunID        string    `json:"run_id"`
	Checked      int       `json:"checked"`
	Repaired     int       `json:"repaired"`
	Rendered     int       `json:"rendered"`
	RenderFailed int       `json:"render_failed"`
	WithCritical int       `json:"with_critical"`
	Outcomes     []Outcome `json:"outcomes,omitempty"`
}

func (s *Summary) add(o Outcome) {
	s.Checked++
	if o.Report.Repair.Changed {
		s.Repaired++
	}
	if o.Rendered {
		s.Rendered++
	}
	if o.RenderError != "" {
		s.RenderFailed++
	}
	if o.Report.Critical > 0 {
		s.WithCritical++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Sweep checks up to limit pending payments under a single run id. The
// payments table is only read; results go to the configured recorders.
func (c *Checker) Sweep(ctx context.Context, src PaymentSource, limit int) (*Summary, error) {
	payments, err := src.PendingQRPayments(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}

	sum := &Summary{RunID: c.runID()}
	outs := make([]Outcome, 0, len(payments))
	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			c.record(context.WithoutCancel(ctx), SourceSweep, outs)
			return sum, err
		}
		o := c.evaluate(ctx, sum.RunID, Request{
			Payload:   p.Payload,
			QRCode:    p.QRCode,
			PaymentID: p.ID,
			Source:    SourceSweep,
		})
		outs = append(outs, o)
		sum.add(o)
	}

	c.record(ctx, SourceSweep, outs)

	c.Logger.Info().
		Str("run_id", sum.RunID).
		Int("checked", sum.Checked).
		Int("repaired", sum.Repaired).
		Int("rendered", sum.Rendered).
		Int("render_failed", sum.RenderFailed).
		Int("with_critical", sum.WithCritical).
		Msg("sweep finished")
	return sum, nil
}

// CheckPayment checks the QR of a single stored payment under a fresh run id.
func (c *Checker) CheckPayment(ctx context.Context, src PaymentLookup, id string) (Outcome, error) {
	p, err := src.GetPayment(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	if p == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	return c.Check(ctx, Request{
		Payload:   p.Payload,
		QRCode:    p.QRCode,
		PaymentID: p.ID,
		Source:    SourceSweep,
	}), nil
}
