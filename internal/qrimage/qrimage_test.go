package qrimage

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"emvqr/internal/repair"
	"emvqr/internal/rules/rulestest"
)

const payload = rulestest.Fixed

var _ repair.Renderer = (*Renderer)(nil)

func TestRender(t *testing.T) {
	r := New(4)
	img, err := r.Render(context.Background(), payload)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != b.Dy() {
		t.Errorf("bitmap is not square: %v", b)
	}
	if b.Dx()%4 != 0 {
		t.Errorf("width %d is not a multiple of the scale", b.Dx())
	}

	again, err := r.Render(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img, again) {
		t.Error("rendering is not deterministic")
	}
}

func TestRenderErrors(t *testing.T) {
	r := New(0)
	if r.Scale != DefaultScale {
		t.Errorf("scale = %d, want %d", r.Scale, DefaultScale)
	}

	if _, err := r.Render(context.Background(), ""); err == nil {
		t.Error("expected error for empty payload")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, payload); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDataURL(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	url := EncodeDataURL(img)
	if url[:len(DataURLPrefix)] != DataURLPrefix {
		t.Fatalf("missing prefix: %q", url)
	}

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"data url", url, img, false},
		{"bare base64", url[len(DataURLPrefix):], img, false},
		{"empty", "", nil, true},
		{"other media type", "data:image/jpeg;base64,AAAA", nil, true},
		{"bad base64", DataURLPrefix + "!!!", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNotDataURL) {
					t.Errorf("err = %v, want ErrNotDataURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURL: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
