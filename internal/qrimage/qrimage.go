// Package qrimage renders EMV QR payloads to PNG bitmaps with rsc.io/qr and
// converts bitmaps to and from the base64 data URLs stored on payment
// records.
package qrimage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"rsc.io/qr"
)

// DataURLPrefix is the prefix of a PNG data URL.
const DataURLPrefix = "data:image/png;base64,"

// ErrNotDataURL is returned when a string is not a base64 PNG data URL.
var ErrNotDataURL = errors.New("not a base64 png data URL")

// DefaultScale is the pixel size of one QR module.
const DefaultScale = 8

// Renderer encodes payloads at error-correction level H.
type Renderer struct {
	Scale int
}

// New returns a renderer with the given module scale. A scale below 1 uses
// DefaultScale.
func New(scale int) *Renderer {
	if scale < 1 {
		scale = DefaultScale
	}
	return &Renderer{Scale: scale}
}

// Render encodes payload and returns the PNG bytes.
func (r *Renderer) Render(ctx context.Context, payload string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, errors.New("empty payload")
	}

	code, err := qr.Encode(payload, qr.H)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	if r != nil && r.Scale > 0 {
		code.Scale = r.Scale
	}
	return code.PNG(), nil
}

// EncodeDataURL wraps PNG bytes in a data URL.
func EncodeDataURL(png []byte) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURL extracts the bitmap from a PNG data URL. A bare base64
// string without the prefix is accepted as well.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNotDataURL
	}
	if strings.HasPrefix(s, "data:") {
		if !strings.HasPrefix(s, DataURLPrefix) {
			return nil, ErrNotDataURL
		}
		s = strings.TrimPrefix(s, DataURLPrefix)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return data, nil
}
