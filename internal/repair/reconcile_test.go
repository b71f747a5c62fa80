package repair

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

var (
	oldBitmap = []byte("old-bitmap")
	newBitmap = []byte("new-bitmap")
)

func renderOK(_ context.Context, payload string) ([]byte, error) {
	return append(append([]byte{}, newBitmap...), payload...), nil
}

func TestReconcileRendersCorrectedPayload(t *testing.T) {
	var got string
	r := RendererFunc(func(ctx context.Context, payload string) ([]byte, error) {
		got = payload
		return newBitmap, nil
	})

	out := Reconcile(context.Background(), Record{Payload: withCRC(fixedTerminal, "AAAA"), Bitmap: oldBitmap}, r, time.Second)
	if !out.Rendered || out.RenderErr != nil {
		t.Fatalf("Rendered = %v, RenderErr = %v", out.Rendered, out.RenderErr)
	}
	if got != fixedTerminal {
		t.Errorf("rendered payload = %s", got)
	}
	if out.Record.Payload != fixedTerminal || !bytes.Equal(out.Record.Bitmap, newBitmap) {
		t.Errorf("Record = %+v", out.Record)
	}
	if !out.Repair.Changed || out.Repair.Computed != "8680" {
		t.Errorf("Repair = %+v", out.Repair)
	}
}

func TestReconcileFailOpen(t *testing.T) {
	stale := withCRC(fixedTerminal, "AAAA")
	block := make(chan struct{})
	defer close(block)

	tests := []struct {
		name    string
		r       Renderer
		wantErr error
	}{
		{"error", RendererFunc(func(context.Context, string) ([]byte, error) {
			return nil, errors.New("printer on fire")
		}), nil},
		{"empty bitmap", RendererFunc(func(context.Context, string) ([]byte, error) {
			return nil, nil
		}), nil},
		{"never returns", RendererFunc(func(context.Context, string) ([]byte, error) {
			<-block
			return newBitmap, nil
		}), ErrRenderTimeout},
		{"panics", RendererFunc(func(context.Context, string) ([]byte, error) {
			panic("boom")
		}), nil},
		{"nil renderer", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Reconcile(context.Background(), Record{Payload: stale, Bitmap: oldBitmap}, tt.r, 20*time.Millisecond)
			if out.Rendered {
				t.Error("Rendered = true")
			}
			if out.RenderErr == nil {
				t.Fatal("RenderErr = nil")
			}
			if tt.wantErr != nil && !errors.Is(out.RenderErr, tt.wantErr) {
				t.Errorf("RenderErr = %v, want %v", out.RenderErr, tt.wantErr)
			}
			if out.Record.Payload != stale || !bytes.Equal(out.Record.Bitmap, oldBitmap) {
				t.Errorf("Record changed: %+v", out.Record)
			}
			// The repair is still reported.
			if !out.Repair.Changed || out.Repair.Corrected != fixedTerminal {
				t.Errorf("Repair = %+v", out.Repair)
			}
		})
	}
}

func TestReconcileContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := RendererFunc(func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	out := Reconcile(ctx, Record{Payload: withCRC(fixedTerminal, "AAAA"), Bitmap: oldBitmap}, r, time.Second)
	if out.Rendered || out.RenderErr == nil {
		t.Errorf("Outcome = %+v", out)
	}
	if out.Record.Payload != withCRC(fixedTerminal, "AAAA") {
		t.Error("payload replaced despite failed render")
	}
}

func TestReconcileNoChange(t *testing.T) {
	called := false
	r := RendererFunc(func(context.Context, string) ([]byte, error) {
		called = true
		return newBitmap, nil
	})

	tests := []Record{
		{Payload: fixedTerminal, Bitmap: oldBitmap},
		{Payload: "", Bitmap: oldBitmap},
		{Payload: withCRC(fixedTerminal, "AAAA"), Bitmap: nil},
	}
	for _, rec := range tests {
		out := Reconcile(context.Background(), rec, r, time.Second)
		if out.Rendered || out.RenderErr != nil {
			t.Errorf("Outcome = %+v", out)
		}
		if out.Record.Payload != rec.Payload || !bytes.Equal(out.Record.Bitmap, rec.Bitmap) {
			t.Errorf("Record changed: %+v", out.Record)
		}
	}
	if called {
		t.Error("renderer called for a record that needed no repair")
	}
}

func TestReconcileDefaultTimeout(t *testing.T) {
	out := Reconcile(context.Background(), Record{Payload: withCRC(fixedTerminal, "AAAA"), Bitmap: oldBitmap}, RendererFunc(renderOK), 0)
	if !out.Rendered {
		t.Fatalf("RenderErr = %v", out.RenderErr)
	}
	if !bytes.HasPrefix(out.Record.Bitmap, newBitmap) {
		t.Errorf("Bitmap = %q", out.Record.Bitmap)
	}
}
