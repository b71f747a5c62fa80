package checker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"emvqr/internal/finding"
	"emvqr/internal/qrimage"
	"emvqr/internal/repair"
	"emvqr/internal/rules/rulestest"
	"emvqr/internal/storage"
)

var badCRC = rulestest.Fixed[:len(rulestest.Fixed)-4] + "AAAA"

type fakeHistory struct {
	checks []storage.Check
	err    error
}

func (f *fakeHistory) Insert(c storage.Check) (int64, error) {
	f.checks = append(f.checks, c)
	return int64(len(f.checks)), f.err
}

type fakeAuditor struct {
	checks []storage.Check
}

func (f *fakeAuditor) RecordRepair(_ context.Context, c storage.Check) error {
	f.checks = append(f.checks, c)
	return nil
}

type fakeAnalytics struct {
	batches [][]storage.Check
	err     error
}

func (f *fakeAnalytics) InsertBatch(_ context.Context, checks []storage.Check) error {
	f.batches = append(f.batches, checks)
	return f.err
}

type fakeSource struct {
	payments []storage.Payment
	err      error
}

func (f *fakeSource) PendingQRPayments(_ context.Context, limit int) ([]storage.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.payments) {
		return f.payments[:limit], nil
	}
	return f.payments, nil
}

func (f *fakeSource) GetPayment(_ context.Context, id string) (*storage.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.payments {
		if f.payments[i].ID == id {
			return &f.payments[i], nil
		}
	}
	return nil, nil
}

func staticRenderer(bitmap string) repair.Renderer {
	return repair.RendererFunc(func(context.Context, string) ([]byte, error) {
		return []byte(bitmap), nil
	})
}

func newTestChecker(r repair.Renderer) (*Checker, *fakeHistory, *fakeAuditor, *fakeAnalytics) {
	h := &fakeHistory{}
	a := &fakeAuditor{}
	an := &fakeAnalytics{}
	c := New(r, zerolog.Nop())
	c.History = h
	c.Auditor = a
	c.Analytics = an
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	c.newID = func() string { return "run-1" }
	return c, h, a, an
}

func TestCheckWithoutBitmap(t *testing.T) {
	c, h, a, an := newTestChecker(nil)

	out := c.Check(context.Background(), Request{Payload: badCRC, Source: SourceAPI})

	if out.RunID != "run-1" {
		t.Errorf("run id = %q", out.RunID)
	}
	if out.Payload != rulestest.Fixed {
		t.Errorf("payload = %q, want repaired payload", out.Payload)
	}
	if out.Rendered || out.RenderError != "" {
		t.Errorf("rendered = %v, render error = %q", out.Rendered, out.RenderError)
	}
	if !out.Report.Findings.Has(finding.CRCMismatch) {
		t.Error("expected crc_mismatch finding on the original payload")
	}

	if len(h.checks) != 1 {
		t.Fatalf("history checks = %d, want 1", len(h.checks))
	}
	got := h.checks[0]
	if got.Source != SourceAPI || !got.Changed || got.Corrected != rulestest.Fixed {
		t.Errorf("history check = %+v", got)
	}
	if got.DeclaredCRC != "AAAA" || got.ComputedCRC != "8680" {
		t.Errorf("crc = %s/%s, want AAAA/8680", got.DeclaredCRC, got.ComputedCRC)
	}
	if len(a.checks) != 0 {
		t.Errorf("audited %d checks without a payment id", len(a.checks))
	}
	if len(an.batches) != 1 || len(an.batches[0]) != 1 {
		t.Errorf("analytics batches = %v", an.batches)
	}
}

func TestCheckRendersBitmap(t *testing.T) {
	c, _, a, _ := newTestChecker(staticRenderer("new"))
	old := qrimage.EncodeDataURL([]byte("old"))

	out := c.Check(context.Background(), Request{Payload: badCRC, QRCode: old, PaymentID: "p1"})

	if !out.Rendered {
		t.Fatalf("not rendered: %q", out.RenderError)
	}
	if out.Payload != rulestest.Fixed {
		t.Errorf("payload = %q", out.Payload)
	}
	if out.QRCode != qrimage.EncodeDataURL([]byte("new")) {
		t.Errorf("qr code = %q", out.QRCode)
	}
	if len(a.checks) != 1 || a.checks[0].PaymentID != "p1" || !a.checks[0].Rendered {
		t.Errorf("audit = %+v", a.checks)
	}
	if a.checks[0].Source != SourceCLI {
		t.Errorf("source = %q, want default %q", a.checks[0].Source, SourceCLI)
	}
}

func TestCheckRenderFailureKeepsOriginal(t *testing.T) {
	failing := repair.RendererFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("renderer down")
	})
	c, h, _, _ := newTestChecker(failing)
	old := qrimage.EncodeDataURL([]byte("old"))

	out := c.Check(context.Background(), Request{Payload: badCRC, QRCode: old, PaymentID: "p1"})

	if out.Rendered {
		t.Error("rendered despite failing renderer")
	}
	if out.Payload != badCRC || out.QRCode != old {
		t.Error("original payload and bitmap must be kept together")
	}
	if !strings.Contains(out.RenderError, "renderer down") {
		t.Errorf("render error = %q", out.RenderError)
	}
	if !out.Report.Repair.Changed || out.Report.Repair.Corrected != rulestest.Fixed {
		t.Error("repair result must still be reported")
	}
	if h.checks[0].RenderError == "" {
		t.Error("render error not recorded")
	}
}

func TestCheckInvalidDataURL(t *testing.T) {
	c, _, _, _ := newTestChecker(staticRenderer("new"))

	out := c.Check(context.Background(), Request{Payload: badCRC, QRCode: "data:text/plain,hello"})

	if !strings.HasPrefix(out.RenderError, "qr_code:") {
		t.Errorf("render error = %q", out.RenderError)
	}
	if out.Payload != badCRC {
		t.Errorf("payload changed without a usable bitmap: %q", out.Payload)
	}
}

func TestCheckCleanPayload(t *testing.T) {
	c, _, a, _ := newTestChecker(staticRenderer("new"))
	old := qrimage.EncodeDataURL([]byte("old"))

	out := c.Check(context.Background(), Request{Payload: rulestest.Fixed, QRCode: old, PaymentID: "p1"})

	if out.Rendered || out.Payload != rulestest.Fixed || out.QRCode != old {
		t.Errorf("clean payload altered: %+v", out)
	}
	if out.Report.Critical != 0 {
		t.Errorf("critical = %d, findings %v", out.Report.Critical, out.Report.Findings)
	}
	if len(a.checks) != 0 {
		t.Error("clean payload should not be audited")
	}
}

func TestCheckRecorderErrorsAreNotFatal(t *testing.T) {
	c, h, _, an := newTestChecker(nil)
	h.err = errors.New("disk full")
	an.err = errors.New("clickhouse down")

	out := c.Check(context.Background(), Request{Payload: badCRC})
	if out.Payload != rulestest.Fixed {
		t.Errorf("payload = %q", out.Payload)
	}
}

func TestSweep(t *testing.T) {
	c, h, a, an := newTestChecker(staticRenderer("new"))
	src := &fakeSource{payments: []storage.Payment{
		{ID: "p1", Payload: rulestest.Fixed},
		{ID: "p2", Payload: badCRC, QRCode: qrimage.EncodeDataURL([]byte("old"))},
		{ID: "p3", Payload: rulestest.Variable},
	}}

	sum, err := c.Sweep(context.Background(), src, 10)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if sum.RunID != "run-1" {
		t.Errorf("run id = %q", sum.RunID)
	}
	if sum.Checked != 3 || sum.Repaired != 1 || sum.Rendered != 1 || sum.RenderFailed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	// p2 has a CRC mismatch, p3 a variable terminal id.
	if sum.WithCritical != 2 {
		t.Errorf("with critical = %d, want 2", sum.WithCritical)
	}
	if len(h.checks) != 3 {
		t.Errorf("history checks = %d, want 3", len(h.checks))
	}
	for _, ch := range h.checks {
		if ch.Source != SourceSweep || ch.RunID != "run-1" {
			t.Errorf("check %s: source %q run %q", ch.PaymentID, ch.Source, ch.RunID)
		}
	}
	if len(a.checks) != 2 {
		t.Errorf("audited = %d, want 2", len(a.checks))
	}
	if len(an.batches) != 1 || len(an.batches[0]) != 3 {
		t.Errorf("analytics batches = %d", len(an.batches))
	}
}

func TestSweepSourceError(t *testing.T) {
	c, _, _, _ := newTestChecker(nil)
	if _, err := c.Sweep(context.Background(), &fakeSource{err: errors.New("no db")}, 10); err == nil {
		t.Error("expected error")
	}
}

func TestSweepCanceled(t *testing.T) {
	c, h, _, _ := newTestChecker(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{payments: []storage.Payment{{ID: "p1", Payload: rulestest.Fixed}}}
	sum, err := c.Sweep(ctx, src, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if sum == nil || sum.Checked != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if len(h.checks) != 0 {
		t.Errorf("history checks = %d, want 0", len(h.checks))
	}
}

func TestCheckPayment(t *testing.T) {
	c, h, a, _ := newTestChecker(staticRenderer("new"))
	src := &fakeSource{payments: []storage.Payment{
		{ID: "p1", Payload: rulestest.Fixed},
		{ID: "p2", Payload: badCRC, QRCode: qrimage.EncodeDataURL([]byte("old"))},
	}}

	out, err := c.CheckPayment(context.Background(), src, "p2")
	if err != nil {
		t.Fatalf("CheckPayment: %v", err)
	}
	if out.PaymentID != "p2" || !out.Rendered || out.Payload != rulestest.Fixed {
		t.Errorf("outcome = %+v", out)
	}
	if len(h.checks) != 1 || h.checks[0].Source != SourceSweep {
		t.Errorf("history = %+v", h.checks)
	}
	if len(a.checks) != 1 || a.checks[0].PaymentID != "p2" {
		t.Errorf("audited = %+v", a.checks)
	}

	if _, err := c.CheckPayment(context.Background(), src, "missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("unknown id: err = %v, want ErrPaymentNotFound", err)
	}

	src.err = errors.New("no db")
	if _, err := c.CheckPayment(context.Background(), src, "p1"); err == nil || errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("lookup failure: err = %v", err)
	}
}
