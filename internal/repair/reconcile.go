package repair

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultRenderTimeout bounds a single render call.
const DefaultRenderTimeout = 5 * time.Second

// ErrRenderTimeout is reported when the renderer does not answer in time.
var ErrRenderTimeout = errors.New("repair: renderer timed out")

// Renderer turns a payload into a QR bitmap.
type Renderer interface {
	Render(ctx context.Context, payload string) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, payload string) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, payload string) ([]byte, error) {
	return f(ctx, payload)
}

// Record is a stored payment QR: the payload and the bitmap shown to payers.
type Record struct {
	Payload string
	Bitmap  []byte
}

// Outcome is the record after reconciliation.
type Outcome struct {
	Record    Record
	Repair    Result
	Rendered  bool  // A new bitmap was produced and Record carries the corrected payload.
	RenderErr error // Set when the corrected payload could not be rendered.
}

// Reconcile repairs rec.Payload and, when the CRC changed, re-renders the
// bitmap so that payload and bitmap agree. If rendering fails, times out or
// never returns, the original payload and bitmap are both kept together.
// Records with an empty payload or bitmap are returned as they are.
func Reconcile(ctx context.Context, rec Record, r Renderer, timeout time.Duration) Outcome {
	out := Outcome{Record: rec}
	if rec.Payload == "" || len(rec.Bitmap) == 0 {
		return out
	}

	out.Repair = Repair(rec.Payload)
	if !out.Repair.Changed {
		return out
	}
	if r == nil {
		out.RenderErr = errors.New("repair: no renderer configured")
		return out
	}

	bitmap, err := render(ctx, r, out.Repair.Corrected, timeout)
	if err != nil {
		out.RenderErr = err
		return out
	}

	out.Record = Record{Payload: out.Repair.Corrected, Bitmap: bitmap}
	out.Rendered = true
	return out
}

type rendered struct {
	bitmap []byte
	err    error
}

func render(ctx context.Context, r Renderer, payload string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned renderer can still send and exit.
	done := make(chan rendered, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- rendered{err: fmt.Errorf("repair: renderer panicked: %v", p)}
			}
		}()
		b, err := r.Render(ctx, payload)
		done <- rendered{bitmap: b, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("repair: render: %w", res.err)
		}
		if len(res.bitmap) == 0 {
			return nil, errors.New("repair: renderer returned an empty bitmap")
		}
		return res.bitmap, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrRenderTimeout
		}
		return nil, ctx.Err()
	}
}
